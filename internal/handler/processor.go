// Package handler wires the catalog and the per-generation dispatchers into
// a single pipeline: resolve the envelope's type name, decode its payload,
// and hand the result to the dispatcher that knows the type.
package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Enriquefft/acs-eventhandler/internal/calling"
	"github.com/Enriquefft/acs-eventhandler/internal/catalog"
	"github.com/Enriquefft/acs-eventhandler/internal/eventgrid"
	"github.com/Enriquefft/acs-eventhandler/internal/jobrouter"
	"github.com/Enriquefft/acs-eventhandler/internal/notify"
)

// ErrUnknownEvent is returned in strict mode for envelopes whose type is not
// registered or not routed by any dispatcher.
var ErrUnknownEvent = errors.New("handler: unknown event type")

// NewCatalog returns a catalog holding every calling and job-router kind.
func NewCatalog(opts ...catalog.Option) *catalog.Catalog {
	return jobrouter.Register(calling.Register(catalog.New(opts...)))
}

// Processor resolves, decodes and dispatches envelopes. It is not safe to
// call Process from multiple goroutines when subscribers are not.
type Processor struct {
	catalog     *catalog.Catalog
	dispatchers []notify.Dispatcher
	strict      bool
	logger      zerolog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithStrict turns unknown events into ErrUnknownEvent instead of skipping
// them.
func WithStrict(strict bool) Option {
	return func(p *Processor) { p.strict = strict }
}

// WithLogger sets the processor's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// New creates a processor over c routing to dispatchers, consulted in order.
func New(c *catalog.Catalog, dispatchers []notify.Dispatcher, opts ...Option) *Processor {
	p := &Processor{
		catalog:     c,
		dispatchers: dispatchers,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles one envelope. It reports whether a dispatcher was
// invoked. Subscriber errors are returned wrapped.
func (p *Processor) Process(env eventgrid.Envelope) (bool, error) {
	h, ok := p.catalog.Resolve(env.Type)
	if !ok {
		return false, p.unknown(env, "not in catalog")
	}

	evt, err := h.Decode(env.Data)
	if err != nil {
		return false, fmt.Errorf("decode %s (id=%s): %w", h.Name(), env.ID, err)
	}

	for _, d := range p.dispatchers {
		if !d.Knows(h.Type()) {
			continue
		}
		contextID := env.CorrelationID()
		p.logger.Debug().
			Str("event", h.Name()).
			Str("id", env.ID).
			Str("dispatcher", d.Name()).
			Str("context_id", contextID).
			Msg("dispatching event")
		if err := d.Dispatch(evt, h.Type(), contextID); err != nil {
			return true, fmt.Errorf("dispatch %s (id=%s): %w", h.Name(), env.ID, err)
		}
		return true, nil
	}

	return false, p.unknown(env, "no dispatcher")
}

// ProcessAll handles envelopes in order, skipping subscription handshakes.
// Every envelope is attempted; the errors are joined.
func (p *Processor) ProcessAll(envs []eventgrid.Envelope) error {
	var errs []error
	for _, env := range envs {
		if env.IsValidation() {
			continue
		}
		if _, err := p.Process(env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run processes envelopes from in until it is closed or ctx is done.
// Failures are logged and do not stop the loop.
func (p *Processor) Run(ctx context.Context, in <-chan eventgrid.Envelope) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-in:
			if !ok {
				return nil
			}
			if env.IsValidation() {
				continue
			}
			if _, err := p.Process(env); err != nil {
				p.logger.Error().Err(err).Str("id", env.ID).Str("type", env.Type).Msg("processing event failed")
			}
		}
	}
}

func (p *Processor) unknown(env eventgrid.Envelope, reason string) error {
	if p.strict {
		return fmt.Errorf("%w: %s (id=%s, %s)", ErrUnknownEvent, env.Type, env.ID, reason)
	}
	p.logger.Debug().Str("type", env.Type).Str("id", env.ID).Str("reason", reason).Msg("skipping event")
	return nil
}
