// Package eventgrid parses webhook deliveries into event envelopes. Both
// the Event Grid schema (eventType, eventTime, topic) and CloudEvents 1.0
// are accepted. CloudEvents are decoded with the CloudEvents SDK in
// structured, binary and batch mode; Event Grid bodies are a JSON array or
// a single object.
package eventgrid

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
)

// SubscriptionValidationEvent is the handshake event sent when a webhook
// subscription is created.
const SubscriptionValidationEvent = "Microsoft.EventGrid.SubscriptionValidationEvent"

var (
	ErrEmptyBody   = errors.New("eventgrid: empty body")
	ErrMissingType = errors.New("eventgrid: event has no type")
)

// Envelope is one delivered event: a namespaced type name plus an opaque
// payload to be decoded once the concrete type is known.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Subject string          `json:"subject,omitempty"`
	Source  string          `json:"source,omitempty"`
	Time    time.Time       `json:"time"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// wireEvent is an Event Grid schema event.
type wireEvent struct {
	ID          string          `json:"id"`
	EventType   string          `json:"eventType"`
	Subject     string          `json:"subject"`
	Topic       string          `json:"topic"`
	EventTime   string          `json:"eventTime"`
	Data        json.RawMessage `json:"data"`
	SpecVersion string          `json:"specversion"`
}

// ParseRequest decodes a webhook request into envelopes. Binary-mode
// CloudEvents (ce-* headers), structured CloudEvents and CloudEvents
// batches go through the CloudEvents SDK; anything else is handed to Parse.
func ParseRequest(r *http.Request) ([]Envelope, error) {
	ct := mediaType(r.Header.Get("Content-Type"))

	switch {
	case ct == cloudevents.ApplicationCloudEventsBatchJSON:
		events, err := cehttp.NewEventsFromHTTPRequest(r)
		if err != nil {
			return nil, fmt.Errorf("decode cloudevents batch: %w", err)
		}
		if len(events) == 0 {
			return nil, ErrEmptyBody
		}
		envs := make([]Envelope, 0, len(events))
		for _, e := range events {
			env, err := FromCloudEvent(e)
			if err != nil {
				return nil, err
			}
			envs = append(envs, env)
		}
		return envs, nil

	case ct == cloudevents.ApplicationCloudEventsJSON || r.Header.Get("Ce-Specversion") != "":
		e, err := cehttp.NewEventFromHTTPRequest(r)
		if err != nil {
			return nil, fmt.Errorf("decode cloudevent: %w", err)
		}
		env, err := FromCloudEvent(*e)
		if err != nil {
			return nil, err
		}
		return []Envelope{env}, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return Parse(body)
}

// FromCloudEvent converts a decoded CloudEvent into an Envelope.
func FromCloudEvent(e cloudevents.Event) (Envelope, error) {
	if e.Type() == "" {
		return Envelope{}, fmt.Errorf("cloudevent (id=%q): %w", e.ID(), ErrMissingType)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, fmt.Errorf("cloudevent (id=%q): %w", e.ID(), err)
	}
	return Envelope{
		ID:      e.ID(),
		Type:    e.Type(),
		Subject: e.Subject(),
		Source:  e.Source(),
		Time:    e.Time().UTC(),
		Data:    json.RawMessage(e.Data()),
	}, nil
}

// Parse decodes a JSON webhook body into envelopes, in delivery order. Each
// element may use either schema; elements carrying specversion are decoded
// as CloudEvents.
func Parse(body []byte) ([]Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}

	var raw []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal event array: %w", err)
		}
	} else {
		raw = []json.RawMessage{body}
	}

	envs := make([]Envelope, 0, len(raw))
	for i, item := range raw {
		env, err := parseOne(item)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		envs = append(envs, env)
	}
	return envs, nil
}

func parseOne(item json.RawMessage) (Envelope, error) {
	var w wireEvent
	if err := json.Unmarshal(item, &w); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal event: %w", err)
	}

	if w.SpecVersion != "" {
		var e cloudevents.Event
		if err := json.Unmarshal(item, &e); err != nil {
			return Envelope{}, fmt.Errorf("unmarshal cloudevent (id=%q): %w", w.ID, err)
		}
		return FromCloudEvent(e)
	}

	if w.EventType == "" {
		return Envelope{}, fmt.Errorf("id=%q: %w", w.ID, ErrMissingType)
	}
	return Envelope{
		ID:      w.ID,
		Type:    w.EventType,
		Subject: w.Subject,
		Source:  w.Topic,
		Time:    parseTime(w.EventTime),
		Data:    w.Data,
	}, nil
}

// IsValidation reports whether e is the subscription handshake.
func (e Envelope) IsValidation() bool {
	return e.Type == SubscriptionValidationEvent
}

// ValidationCode extracts the handshake code from a validation event.
func (e Envelope) ValidationCode() (string, error) {
	var data struct {
		ValidationCode string `json:"validationCode"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return "", fmt.Errorf("unmarshal validation data: %w", err)
	}
	if data.ValidationCode == "" {
		return "", errors.New("eventgrid: validation event without code")
	}
	return data.ValidationCode, nil
}

// CorrelationID returns the payload's correlationId when present, falling
// back to the envelope subject.
func (e Envelope) CorrelationID() string {
	var data struct {
		CorrelationID string `json:"correlationId"`
	}
	if len(e.Data) > 0 && json.Unmarshal(e.Data, &data) == nil && data.CorrelationID != "" {
		return data.CorrelationID
	}
	return e.Subject
}

// ValidationResponse is the body answering a subscription handshake.
type ValidationResponse struct {
	ValidationResponse string `json:"validationResponse"`
}

// mediaType returns the lowercased media type of a Content-Type value,
// without parameters.
func mediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// parseTime accepts RFC3339 (with or without fractional seconds) or a Unix
// epoch second string. Unparseable values yield the zero time.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC()
	}
	return time.Time{}
}
