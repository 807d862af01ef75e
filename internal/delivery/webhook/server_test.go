package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Enriquefft/acs-eventhandler/internal/config"
	"github.com/Enriquefft/acs-eventhandler/internal/eventgrid"
	"github.com/Enriquefft/acs-eventhandler/internal/security"
)

const deliveryBody = `[
	{"id": "e-1", "eventType": "Microsoft.Communication.CallConnected", "data": {"callConnectionId": "c-1"}},
	{"id": "e-2", "eventType": "Microsoft.Communication.CallDisconnected", "data": {"callConnectionId": "c-1"}}
]`

func newTestServer(t *testing.T) (*httptest.Server, chan eventgrid.Envelope) {
	t.Helper()
	s := &Server{Logger: zerolog.Nop()}
	out := make(chan eventgrid.Envelope, 16)
	srv := httptest.NewServer(s.Handler(out))
	t.Cleanup(srv.Close)
	return srv, out
}

func drain(out chan eventgrid.Envelope) []eventgrid.Envelope {
	var envs []eventgrid.Envelope
	for {
		select {
		case env := <-out:
			envs = append(envs, env)
		default:
			return envs
		}
	}
}

func TestDeliveryEmitsEnvelopes(t *testing.T) {
	srv, out := newTestServer(t)

	resp, err := http.Post(srv.URL+DefaultPath, "application/json", strings.NewReader(deliveryBody))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	envs := drain(out)
	require.Len(t, envs, 2)
	assert.Equal(t, "Microsoft.Communication.CallConnected", envs[0].Type)
	assert.Equal(t, "e-2", envs[1].ID)
}

func TestDuplicateDeliveryIsDropped(t *testing.T) {
	srv, out := newTestServer(t)

	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+DefaultPath, "application/json", strings.NewReader(deliveryBody))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	assert.Len(t, drain(out), 2)
}

func TestAbortedHandOffAllowsRedelivery(t *testing.T) {
	s := &Server{Logger: zerolog.Nop()}

	// Nobody reads from blocked and the request is already gone.
	blocked := make(chan eventgrid.Envelope)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, DefaultPath, strings.NewReader(deliveryBody)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler(blocked).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	out := make(chan eventgrid.Envelope, 16)
	req = httptest.NewRequest(http.MethodPost, DefaultPath, strings.NewReader(deliveryBody))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.Handler(out).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	envs := drain(out)
	require.Len(t, envs, 2)
	assert.Equal(t, "e-1", envs[0].ID)
	assert.Equal(t, "e-2", envs[1].ID)
}

func TestBinaryCloudEventDelivery(t *testing.T) {
	srv, out := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+DefaultPath, strings.NewReader(`{"jobId": "j-1"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ce-specversion", "1.0")
	req.Header.Set("ce-type", "Microsoft.Communication.RouterJobCancelled")
	req.Header.Set("ce-id", "b-1")
	req.Header.Set("ce-source", "/acs/router")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	envs := drain(out)
	require.Len(t, envs, 1)
	assert.Equal(t, "b-1", envs[0].ID)
	assert.Equal(t, "Microsoft.Communication.RouterJobCancelled", envs[0].Type)
	assert.JSONEq(t, `{"jobId": "j-1"}`, string(envs[0].Data))
}

func TestCleanSeenAllowsRedelivery(t *testing.T) {
	s := &Server{Logger: zerolog.Nop()}
	assert.False(t, s.MarkSeen("a"))
	assert.True(t, s.MarkSeen("a"))
	s.CleanSeen()
	assert.False(t, s.MarkSeen("a"))
}

func TestSubscriptionValidation(t *testing.T) {
	srv, out := newTestServer(t)
	body := `[{"id": "v-1", "eventType": "Microsoft.EventGrid.SubscriptionValidationEvent", "data": {"validationCode": "code-123"}}]`

	resp, err := http.Post(srv.URL+DefaultPath, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got eventgrid.ValidationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "code-123", got.ValidationResponse)
	assert.Empty(t, drain(out))
}

func TestSubscriptionValidationWithoutCode(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `[{"id": "v-1", "eventType": "Microsoft.EventGrid.SubscriptionValidationEvent", "data": {}}]`

	resp, err := http.Post(srv.URL+DefaultPath, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCloudEventsHandshake(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+DefaultPath, nil)
	require.NoError(t, err)
	req.Header.Set("WebHook-Request-Origin", "eventgrid.azure.net")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "eventgrid.azure.net", resp.Header.Get("WebHook-Allowed-Origin"))
	assert.Equal(t, "*", resp.Header.Get("WebHook-Allowed-Rate"))

	req, err = http.NewRequest(http.MethodOptions, srv.URL+DefaultPath, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func newGuardedServer(t *testing.T, cfg config.SecurityConfig) (*httptest.Server, chan eventgrid.Envelope) {
	t.Helper()
	s := &Server{Logger: zerolog.Nop(), Guard: security.New(cfg)}
	out := make(chan eventgrid.Envelope, 16)
	srv := httptest.NewServer(s.Handler(out))
	t.Cleanup(srv.Close)
	return srv, out
}

func postFrom(t *testing.T, url, origin, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("WebHook-Request-Origin", origin)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestGuardAllowlist(t *testing.T) {
	srv, out := newGuardedServer(t, config.SecurityConfig{
		Mode:    "allowlist",
		Origins: []string{"eventgrid.azure.net"},
	})

	assert.Equal(t, http.StatusForbidden, postFrom(t, srv.URL+DefaultPath, "evil.example.com", deliveryBody))
	assert.Empty(t, drain(out))

	assert.Equal(t, http.StatusOK, postFrom(t, srv.URL+DefaultPath, "eventgrid.azure.net", deliveryBody))
	assert.Len(t, drain(out), 2)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+DefaultPath, nil)
	require.NoError(t, err)
	req.Header.Set("WebHook-Request-Origin", "evil.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGuardAllowlistByPeerAddress(t *testing.T) {
	// Event Grid schema deliveries carry no WebHook-Request-Origin header,
	// so they are matched on the peer address.
	srv, out := newGuardedServer(t, config.SecurityConfig{
		Mode:    "allowlist",
		Origins: []string{"127.0.0.1"},
	})
	assert.Equal(t, http.StatusOK, postFrom(t, srv.URL+DefaultPath, "", deliveryBody))
	assert.Len(t, drain(out), 2)

	srv, out = newGuardedServer(t, config.SecurityConfig{
		Mode:    "allowlist",
		Origins: []string{"eventgrid.azure.net"},
	})
	assert.Equal(t, http.StatusForbidden, postFrom(t, srv.URL+DefaultPath, "", deliveryBody))
	assert.Empty(t, drain(out))
}

func TestGuardRateLimit(t *testing.T) {
	srv, out := newGuardedServer(t, config.SecurityConfig{
		Mode:       "open",
		RateLimit:  1,
		RateWindow: 60,
	})

	body := `{"id": "r-1", "eventType": "Microsoft.Communication.CallConnected", "data": {}}`
	assert.Equal(t, http.StatusOK, postFrom(t, srv.URL+DefaultPath, "eventgrid.azure.net", body))
	assert.Equal(t, http.StatusTooManyRequests, postFrom(t, srv.URL+DefaultPath, "eventgrid.azure.net", body))
	assert.Len(t, drain(out), 1)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+DefaultPath, nil)
	require.NoError(t, err)
	req.Header.Set("WebHook-Request-Origin", "eventgrid.azure.net")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("WebHook-Allowed-Rate"))
}

func TestInvalidPayload(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+DefaultPath, "application/json", strings.NewReader(`{"id": `))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + DefaultPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCustomPath(t *testing.T) {
	s := &Server{Path: "/hooks/acs", Logger: zerolog.Nop()}
	out := make(chan eventgrid.Envelope, 4)
	srv := httptest.NewServer(s.Handler(out))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/hooks/acs", "application/json", strings.NewReader(deliveryBody))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, drain(out), 2)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	s := &Server{Addr: addr, Logger: zerolog.Nop()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, make(chan eventgrid.Envelope, 1)) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
