// Package jobrouter dispatches job-router events to in-process subscribers.
package jobrouter

import (
	"reflect"

	"github.com/rs/zerolog"

	"github.com/Enriquefft/acs-eventhandler/internal/catalog"
	contract "github.com/Enriquefft/acs-eventhandler/internal/contracts/jobrouter"
	"github.com/Enriquefft/acs-eventhandler/internal/notify"
)

// Compile-time interface check.
var _ notify.Dispatcher = (*Dispatcher)(nil)

var (
	typeRouterJobReceived         = reflect.TypeFor[contract.RouterJobReceived]()
	typeRouterJobClassified       = reflect.TypeFor[contract.RouterJobClassified]()
	typeRouterJobQueued           = reflect.TypeFor[contract.RouterJobQueued]()
	typeRouterJobCancelled        = reflect.TypeFor[contract.RouterJobCancelled]()
	typeRouterJobCompleted        = reflect.TypeFor[contract.RouterJobCompleted]()
	typeRouterJobClosed           = reflect.TypeFor[contract.RouterJobClosed]()
	typeRouterWorkerOfferIssued   = reflect.TypeFor[contract.RouterWorkerOfferIssued]()
	typeRouterWorkerOfferAccepted = reflect.TypeFor[contract.RouterWorkerOfferAccepted]()
)

// Kinds lists the payload types this dispatcher routes, in declaration order.
func Kinds() []reflect.Type {
	return []reflect.Type{
		typeRouterJobReceived,
		typeRouterJobClassified,
		typeRouterJobQueued,
		typeRouterJobCancelled,
		typeRouterJobCompleted,
		typeRouterJobClosed,
		typeRouterWorkerOfferIssued,
		typeRouterWorkerOfferAccepted,
	}
}

// Register adds every jobrouter kind to c and returns c for chaining.
func Register(c *catalog.Catalog) *catalog.Catalog {
	catalog.Register[contract.RouterJobReceived](c)
	catalog.Register[contract.RouterJobClassified](c)
	catalog.Register[contract.RouterJobQueued](c)
	catalog.Register[contract.RouterJobCancelled](c)
	catalog.Register[contract.RouterJobCompleted](c)
	catalog.Register[contract.RouterJobClosed](c)
	catalog.Register[contract.RouterWorkerOfferIssued](c)
	catalog.Register[contract.RouterWorkerOfferAccepted](c)
	return c
}

// Capability interfaces for Attach. A handler implements any subset.
type (
	RouterJobReceivedHandler interface {
		HandleRouterJobReceived(sender notify.Sender, args notify.Args[contract.RouterJobReceived]) error
	}
	RouterJobClassifiedHandler interface {
		HandleRouterJobClassified(sender notify.Sender, args notify.Args[contract.RouterJobClassified]) error
	}
	RouterJobQueuedHandler interface {
		HandleRouterJobQueued(sender notify.Sender, args notify.Args[contract.RouterJobQueued]) error
	}
	RouterJobCancelledHandler interface {
		HandleRouterJobCancelled(sender notify.Sender, args notify.Args[contract.RouterJobCancelled]) error
	}
	RouterJobCompletedHandler interface {
		HandleRouterJobCompleted(sender notify.Sender, args notify.Args[contract.RouterJobCompleted]) error
	}
	RouterJobClosedHandler interface {
		HandleRouterJobClosed(sender notify.Sender, args notify.Args[contract.RouterJobClosed]) error
	}
	RouterWorkerOfferIssuedHandler interface {
		HandleRouterWorkerOfferIssued(sender notify.Sender, args notify.Args[contract.RouterWorkerOfferIssued]) error
	}
	RouterWorkerOfferAcceptedHandler interface {
		HandleRouterWorkerOfferAccepted(sender notify.Sender, args notify.Args[contract.RouterWorkerOfferAccepted]) error
	}
)

// Dispatcher routes decoded jobrouter payloads to the subscribers of their
// kind. Subscribers run synchronously in the dispatching goroutine, in
// subscription order.
type Dispatcher struct {
	logger zerolog.Logger

	routerJobReceived         notify.Hook[contract.RouterJobReceived]
	routerJobClassified       notify.Hook[contract.RouterJobClassified]
	routerJobQueued           notify.Hook[contract.RouterJobQueued]
	routerJobCancelled        notify.Hook[contract.RouterJobCancelled]
	routerJobCompleted        notify.Hook[contract.RouterJobCompleted]
	routerJobClosed           notify.Hook[contract.RouterJobClosed]
	routerWorkerOfferIssued   notify.Hook[contract.RouterWorkerOfferIssued]
	routerWorkerOfferAccepted notify.Hook[contract.RouterWorkerOfferAccepted]
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used to report ignored events.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a dispatcher with no subscribers.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements notify.Sender.
func (d *Dispatcher) Name() string { return "jobrouter" }

// Knows reports whether eventType is one of the routed kinds.
func (d *Dispatcher) Knows(eventType reflect.Type) bool {
	for _, k := range Kinds() {
		if k == eventType {
			return true
		}
	}
	return false
}

// Dispatch raises the notification for eventType, carrying event and
// contextID. event may be a pointer or a value of the kind's type. An
// eventType outside the known kinds is ignored. The first subscriber error
// stops the fan-out and is returned.
func (d *Dispatcher) Dispatch(event any, eventType reflect.Type, contextID string) error {
	switch eventType {
	case typeRouterJobReceived:
		return notify.Raise(d, &d.routerJobReceived, event, contextID)
	case typeRouterJobClassified:
		return notify.Raise(d, &d.routerJobClassified, event, contextID)
	case typeRouterJobQueued:
		return notify.Raise(d, &d.routerJobQueued, event, contextID)
	case typeRouterJobCancelled:
		return notify.Raise(d, &d.routerJobCancelled, event, contextID)
	case typeRouterJobCompleted:
		return notify.Raise(d, &d.routerJobCompleted, event, contextID)
	case typeRouterJobClosed:
		return notify.Raise(d, &d.routerJobClosed, event, contextID)
	case typeRouterWorkerOfferIssued:
		return notify.Raise(d, &d.routerWorkerOfferIssued, event, contextID)
	case typeRouterWorkerOfferAccepted:
		return notify.Raise(d, &d.routerWorkerOfferAccepted, event, contextID)
	default:
		d.logger.Debug().Stringer("type", eventType).Msg("ignoring unknown event type")
		return nil
	}
}

// DispatchEvent dispatches event under its own dynamic type.
func (d *Dispatcher) DispatchEvent(event any, contextID string) error {
	return d.Dispatch(event, notify.TypeOf(event), contextID)
}

// Attach subscribes every capability h implements and returns a func that
// detaches all of them. Handlers are notified in attach order.
func (d *Dispatcher) Attach(h any) (detach func()) {
	var unsubs []func()
	if x, ok := h.(RouterJobReceivedHandler); ok {
		unsubs = append(unsubs, d.OnRouterJobReceived(x.HandleRouterJobReceived))
	}
	if x, ok := h.(RouterJobClassifiedHandler); ok {
		unsubs = append(unsubs, d.OnRouterJobClassified(x.HandleRouterJobClassified))
	}
	if x, ok := h.(RouterJobQueuedHandler); ok {
		unsubs = append(unsubs, d.OnRouterJobQueued(x.HandleRouterJobQueued))
	}
	if x, ok := h.(RouterJobCancelledHandler); ok {
		unsubs = append(unsubs, d.OnRouterJobCancelled(x.HandleRouterJobCancelled))
	}
	if x, ok := h.(RouterJobCompletedHandler); ok {
		unsubs = append(unsubs, d.OnRouterJobCompleted(x.HandleRouterJobCompleted))
	}
	if x, ok := h.(RouterJobClosedHandler); ok {
		unsubs = append(unsubs, d.OnRouterJobClosed(x.HandleRouterJobClosed))
	}
	if x, ok := h.(RouterWorkerOfferIssuedHandler); ok {
		unsubs = append(unsubs, d.OnRouterWorkerOfferIssued(x.HandleRouterWorkerOfferIssued))
	}
	if x, ok := h.(RouterWorkerOfferAcceptedHandler); ok {
		unsubs = append(unsubs, d.OnRouterWorkerOfferAccepted(x.HandleRouterWorkerOfferAccepted))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// OnRouterJobReceived subscribes fn to job created events.
func (d *Dispatcher) OnRouterJobReceived(fn notify.Handler[contract.RouterJobReceived]) (unsubscribe func()) {
	return d.routerJobReceived.Subscribe(fn)
}

// OnRouterJobClassified subscribes fn to job classified events.
func (d *Dispatcher) OnRouterJobClassified(fn notify.Handler[contract.RouterJobClassified]) (unsubscribe func()) {
	return d.routerJobClassified.Subscribe(fn)
}

// OnRouterJobQueued subscribes fn to job queued events.
func (d *Dispatcher) OnRouterJobQueued(fn notify.Handler[contract.RouterJobQueued]) (unsubscribe func()) {
	return d.routerJobQueued.Subscribe(fn)
}

// OnRouterJobCancelled subscribes fn to job cancelled events.
func (d *Dispatcher) OnRouterJobCancelled(fn notify.Handler[contract.RouterJobCancelled]) (unsubscribe func()) {
	return d.routerJobCancelled.Subscribe(fn)
}

// OnRouterJobCompleted subscribes fn to job completed events.
func (d *Dispatcher) OnRouterJobCompleted(fn notify.Handler[contract.RouterJobCompleted]) (unsubscribe func()) {
	return d.routerJobCompleted.Subscribe(fn)
}

// OnRouterJobClosed subscribes fn to job closed events.
func (d *Dispatcher) OnRouterJobClosed(fn notify.Handler[contract.RouterJobClosed]) (unsubscribe func()) {
	return d.routerJobClosed.Subscribe(fn)
}

// OnRouterWorkerOfferIssued subscribes fn to offers issued to workers.
func (d *Dispatcher) OnRouterWorkerOfferIssued(fn notify.Handler[contract.RouterWorkerOfferIssued]) (unsubscribe func()) {
	return d.routerWorkerOfferIssued.Subscribe(fn)
}

// OnRouterWorkerOfferAccepted subscribes fn to offers accepted by workers.
func (d *Dispatcher) OnRouterWorkerOfferAccepted(fn notify.Handler[contract.RouterWorkerOfferAccepted]) (unsubscribe func()) {
	return d.routerWorkerOfferAccepted.Subscribe(fn)
}
