// Package calling dispatches call-automation events to in-process
// subscribers.
package calling

import (
	"reflect"

	"github.com/rs/zerolog"

	"github.com/Enriquefft/acs-eventhandler/internal/catalog"
	contract "github.com/Enriquefft/acs-eventhandler/internal/contracts/calling"
	"github.com/Enriquefft/acs-eventhandler/internal/notify"
)

// Compile-time interface check.
var _ notify.Dispatcher = (*Dispatcher)(nil)

var (
	typeCallConnected              = reflect.TypeFor[contract.CallConnected]()
	typeCallDisconnected           = reflect.TypeFor[contract.CallDisconnected]()
	typeCallConnectionStateChanged = reflect.TypeFor[contract.CallConnectionStateChanged]()
	typeParticipantsUpdated        = reflect.TypeFor[contract.ParticipantsUpdated]()
	typeAddParticipantSucceeded    = reflect.TypeFor[contract.AddParticipantSucceeded]()
	typeAddParticipantFailed       = reflect.TypeFor[contract.AddParticipantFailed]()
	typeCallTransferAccepted       = reflect.TypeFor[contract.CallTransferAccepted]()
	typePlayCompleted              = reflect.TypeFor[contract.PlayCompleted]()
	typePlayFailed                 = reflect.TypeFor[contract.PlayFailed]()
	typeRecognizeCompleted         = reflect.TypeFor[contract.RecognizeCompleted]()
	typeRecognizeFailed            = reflect.TypeFor[contract.RecognizeFailed]()
	typeIncomingCall               = reflect.TypeFor[contract.IncomingCall]()
)

// Kinds lists the payload types this dispatcher routes, in declaration order.
func Kinds() []reflect.Type {
	return []reflect.Type{
		typeCallConnected,
		typeCallDisconnected,
		typeCallConnectionStateChanged,
		typeParticipantsUpdated,
		typeAddParticipantSucceeded,
		typeAddParticipantFailed,
		typeCallTransferAccepted,
		typePlayCompleted,
		typePlayFailed,
		typeRecognizeCompleted,
		typeRecognizeFailed,
		typeIncomingCall,
	}
}

// Register adds every calling kind to c and returns c for chaining.
func Register(c *catalog.Catalog) *catalog.Catalog {
	catalog.Register[contract.CallConnected](c)
	catalog.Register[contract.CallDisconnected](c)
	catalog.Register[contract.CallConnectionStateChanged](c)
	catalog.Register[contract.ParticipantsUpdated](c)
	catalog.Register[contract.AddParticipantSucceeded](c)
	catalog.Register[contract.AddParticipantFailed](c)
	catalog.Register[contract.CallTransferAccepted](c)
	catalog.Register[contract.PlayCompleted](c)
	catalog.Register[contract.PlayFailed](c)
	catalog.Register[contract.RecognizeCompleted](c)
	catalog.Register[contract.RecognizeFailed](c)
	catalog.Register[contract.IncomingCall](c)
	return c
}

// Capability interfaces for Attach. A handler implements any subset.
type (
	CallConnectedHandler interface {
		HandleCallConnected(sender notify.Sender, args notify.Args[contract.CallConnected]) error
	}
	CallDisconnectedHandler interface {
		HandleCallDisconnected(sender notify.Sender, args notify.Args[contract.CallDisconnected]) error
	}
	CallConnectionStateChangedHandler interface {
		HandleCallConnectionStateChanged(sender notify.Sender, args notify.Args[contract.CallConnectionStateChanged]) error
	}
	ParticipantsUpdatedHandler interface {
		HandleParticipantsUpdated(sender notify.Sender, args notify.Args[contract.ParticipantsUpdated]) error
	}
	AddParticipantSucceededHandler interface {
		HandleAddParticipantSucceeded(sender notify.Sender, args notify.Args[contract.AddParticipantSucceeded]) error
	}
	AddParticipantFailedHandler interface {
		HandleAddParticipantFailed(sender notify.Sender, args notify.Args[contract.AddParticipantFailed]) error
	}
	CallTransferAcceptedHandler interface {
		HandleCallTransferAccepted(sender notify.Sender, args notify.Args[contract.CallTransferAccepted]) error
	}
	PlayCompletedHandler interface {
		HandlePlayCompleted(sender notify.Sender, args notify.Args[contract.PlayCompleted]) error
	}
	PlayFailedHandler interface {
		HandlePlayFailed(sender notify.Sender, args notify.Args[contract.PlayFailed]) error
	}
	RecognizeCompletedHandler interface {
		HandleRecognizeCompleted(sender notify.Sender, args notify.Args[contract.RecognizeCompleted]) error
	}
	RecognizeFailedHandler interface {
		HandleRecognizeFailed(sender notify.Sender, args notify.Args[contract.RecognizeFailed]) error
	}
	IncomingCallHandler interface {
		HandleIncomingCall(sender notify.Sender, args notify.Args[contract.IncomingCall]) error
	}
)

// Dispatcher routes decoded calling payloads to the subscribers of their
// kind. Subscribers run synchronously in the dispatching goroutine, in
// subscription order.
type Dispatcher struct {
	logger zerolog.Logger

	callConnected              notify.Hook[contract.CallConnected]
	callDisconnected           notify.Hook[contract.CallDisconnected]
	callConnectionStateChanged notify.Hook[contract.CallConnectionStateChanged]
	participantsUpdated        notify.Hook[contract.ParticipantsUpdated]
	addParticipantSucceeded    notify.Hook[contract.AddParticipantSucceeded]
	addParticipantFailed       notify.Hook[contract.AddParticipantFailed]
	callTransferAccepted       notify.Hook[contract.CallTransferAccepted]
	playCompleted              notify.Hook[contract.PlayCompleted]
	playFailed                 notify.Hook[contract.PlayFailed]
	recognizeCompleted         notify.Hook[contract.RecognizeCompleted]
	recognizeFailed            notify.Hook[contract.RecognizeFailed]
	incomingCall               notify.Hook[contract.IncomingCall]
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
func (d *Dispatcher) Name() string { return "calling" }

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
	case typeCallConnected:
		return notify.Raise(d, &d.callConnected, event, contextID)
	case typeCallDisconnected:
		return notify.Raise(d, &d.callDisconnected, event, contextID)
	case typeCallConnectionStateChanged:
		return notify.Raise(d, &d.callConnectionStateChanged, event, contextID)
	case typeParticipantsUpdated:
		return notify.Raise(d, &d.participantsUpdated, event, contextID)
	case typeAddParticipantSucceeded:
		return notify.Raise(d, &d.addParticipantSucceeded, event, contextID)
	case typeAddParticipantFailed:
		return notify.Raise(d, &d.addParticipantFailed, event, contextID)
	case typeCallTransferAccepted:
		return notify.Raise(d, &d.callTransferAccepted, event, contextID)
	case typePlayCompleted:
		return notify.Raise(d, &d.playCompleted, event, contextID)
	case typePlayFailed:
		return notify.Raise(d, &d.playFailed, event, contextID)
	case typeRecognizeCompleted:
		return notify.Raise(d, &d.recognizeCompleted, event, contextID)
	case typeRecognizeFailed:
		return notify.Raise(d, &d.recognizeFailed, event, contextID)
	case typeIncomingCall:
		return notify.Raise(d, &d.incomingCall, event, contextID)
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
	if x, ok := h.(CallConnectedHandler); ok {
		unsubs = append(unsubs, d.OnCallConnected(x.HandleCallConnected))
	}
	if x, ok := h.(CallDisconnectedHandler); ok {
		unsubs = append(unsubs, d.OnCallDisconnected(x.HandleCallDisconnected))
	}
	if x, ok := h.(CallConnectionStateChangedHandler); ok {
		unsubs = append(unsubs, d.OnCallConnectionStateChanged(x.HandleCallConnectionStateChanged))
	}
	if x, ok := h.(ParticipantsUpdatedHandler); ok {
		unsubs = append(unsubs, d.OnParticipantsUpdated(x.HandleParticipantsUpdated))
	}
	if x, ok := h.(AddParticipantSucceededHandler); ok {
		unsubs = append(unsubs, d.OnAddParticipantSucceeded(x.HandleAddParticipantSucceeded))
	}
	if x, ok := h.(AddParticipantFailedHandler); ok {
		unsubs = append(unsubs, d.OnAddParticipantFailed(x.HandleAddParticipantFailed))
	}
	if x, ok := h.(CallTransferAcceptedHandler); ok {
		unsubs = append(unsubs, d.OnCallTransferAccepted(x.HandleCallTransferAccepted))
	}
	if x, ok := h.(PlayCompletedHandler); ok {
		unsubs = append(unsubs, d.OnPlayCompleted(x.HandlePlayCompleted))
	}
	if x, ok := h.(PlayFailedHandler); ok {
		unsubs = append(unsubs, d.OnPlayFailed(x.HandlePlayFailed))
	}
	if x, ok := h.(RecognizeCompletedHandler); ok {
		unsubs = append(unsubs, d.OnRecognizeCompleted(x.HandleRecognizeCompleted))
	}
	if x, ok := h.(RecognizeFailedHandler); ok {
		unsubs = append(unsubs, d.OnRecognizeFailed(x.HandleRecognizeFailed))
	}
	if x, ok := h.(IncomingCallHandler); ok {
		unsubs = append(unsubs, d.OnIncomingCall(x.HandleIncomingCall))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// OnCallConnected subscribes fn to call connected events.
func (d *Dispatcher) OnCallConnected(fn notify.Handler[contract.CallConnected]) (unsubscribe func()) {
	return d.callConnected.Subscribe(fn)
}

// OnCallDisconnected subscribes fn to call disconnected events.
func (d *Dispatcher) OnCallDisconnected(fn notify.Handler[contract.CallDisconnected]) (unsubscribe func()) {
	return d.callDisconnected.Subscribe(fn)
}

// OnCallConnectionStateChanged subscribes fn to call-connection state changes.
func (d *Dispatcher) OnCallConnectionStateChanged(fn notify.Handler[contract.CallConnectionStateChanged]) (unsubscribe func()) {
	return d.callConnectionStateChanged.Subscribe(fn)
}

// OnParticipantsUpdated subscribes fn to participant list updates.
func (d *Dispatcher) OnParticipantsUpdated(fn notify.Handler[contract.ParticipantsUpdated]) (unsubscribe func()) {
	return d.participantsUpdated.Subscribe(fn)
}

// OnAddParticipantSucceeded subscribes fn to successful participant invitations.
func (d *Dispatcher) OnAddParticipantSucceeded(fn notify.Handler[contract.AddParticipantSucceeded]) (unsubscribe func()) {
	return d.addParticipantSucceeded.Subscribe(fn)
}

// OnAddParticipantFailed subscribes fn to failed participant invitations.
func (d *Dispatcher) OnAddParticipantFailed(fn notify.Handler[contract.AddParticipantFailed]) (unsubscribe func()) {
	return d.addParticipantFailed.Subscribe(fn)
}

// OnCallTransferAccepted subscribes fn to accepted call transfers.
func (d *Dispatcher) OnCallTransferAccepted(fn notify.Handler[contract.CallTransferAccepted]) (unsubscribe func()) {
	return d.callTransferAccepted.Subscribe(fn)
}

// OnPlayCompleted subscribes fn to completed media play operations.
func (d *Dispatcher) OnPlayCompleted(fn notify.Handler[contract.PlayCompleted]) (unsubscribe func()) {
	return d.playCompleted.Subscribe(fn)
}

// OnPlayFailed subscribes fn to failed media play operations.
func (d *Dispatcher) OnPlayFailed(fn notify.Handler[contract.PlayFailed]) (unsubscribe func()) {
	return d.playFailed.Subscribe(fn)
}

// OnRecognizeCompleted subscribes fn to completed recognize operations.
func (d *Dispatcher) OnRecognizeCompleted(fn notify.Handler[contract.RecognizeCompleted]) (unsubscribe func()) {
	return d.recognizeCompleted.Subscribe(fn)
}

// OnRecognizeFailed subscribes fn to failed recognize operations.
func (d *Dispatcher) OnRecognizeFailed(fn notify.Handler[contract.RecognizeFailed]) (unsubscribe func()) {
	return d.recognizeFailed.Subscribe(fn)
}

// OnIncomingCall subscribes fn to incoming call notifications.
func (d *Dispatcher) OnIncomingCall(fn notify.Handler[contract.IncomingCall]) (unsubscribe func()) {
	return d.incomingCall.Subscribe(fn)
}
