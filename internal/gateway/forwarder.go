package gateway

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/Enriquefft/acs-eventhandler/internal/calling"
	callingevents "github.com/Enriquefft/acs-eventhandler/internal/contracts/calling"
	routerevents "github.com/Enriquefft/acs-eventhandler/internal/contracts/jobrouter"
	"github.com/Enriquefft/acs-eventhandler/internal/jobrouter"
	"github.com/Enriquefft/acs-eventhandler/internal/notify"
)

// MessageSender is the part of Client the Forwarder needs.
type MessageSender interface {
	Send(msg Message) error
}

// Forwarder relays dispatched events to the gateway. Send failures are
// logged and swallowed so that a gateway outage never fails dispatch.
type Forwarder struct {
	Client MessageSender
	Logger zerolog.Logger
}

// forward builds a subscriber for kind T.
func forward[T any](f *Forwarder) notify.Handler[T] {
	name := reflect.TypeFor[T]().Name()
	return func(sender notify.Sender, args notify.Args[T]) error {
		data, err := json.Marshal(args.Event)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		msg := Message{
			Type:      name,
			Source:    sender.Name(),
			ContextID: args.ContextID,
			Data:      data,
		}
		if err := f.Client.Send(msg); err != nil {
			f.Logger.Warn().Err(err).Str("event", name).Msg("gateway: forward failed")
		}
		return nil
	}
}

// AttachCalling subscribes the forwarder to every calling kind.
func (f *Forwarder) AttachCalling(d *calling.Dispatcher) (detach func()) {
	return detachAll(
		d.OnCallConnected(forward[callingevents.CallConnected](f)),
		d.OnCallDisconnected(forward[callingevents.CallDisconnected](f)),
		d.OnCallConnectionStateChanged(forward[callingevents.CallConnectionStateChanged](f)),
		d.OnParticipantsUpdated(forward[callingevents.ParticipantsUpdated](f)),
		d.OnAddParticipantSucceeded(forward[callingevents.AddParticipantSucceeded](f)),
		d.OnAddParticipantFailed(forward[callingevents.AddParticipantFailed](f)),
		d.OnCallTransferAccepted(forward[callingevents.CallTransferAccepted](f)),
		d.OnPlayCompleted(forward[callingevents.PlayCompleted](f)),
		d.OnPlayFailed(forward[callingevents.PlayFailed](f)),
		d.OnRecognizeCompleted(forward[callingevents.RecognizeCompleted](f)),
		d.OnRecognizeFailed(forward[callingevents.RecognizeFailed](f)),
		d.OnIncomingCall(forward[callingevents.IncomingCall](f)),
	)
}

// AttachJobRouter subscribes the forwarder to every job-router kind.
func (f *Forwarder) AttachJobRouter(d *jobrouter.Dispatcher) (detach func()) {
	return detachAll(
		d.OnRouterJobReceived(forward[routerevents.RouterJobReceived](f)),
		d.OnRouterJobClassified(forward[routerevents.RouterJobClassified](f)),
		d.OnRouterJobQueued(forward[routerevents.RouterJobQueued](f)),
		d.OnRouterJobCancelled(forward[routerevents.RouterJobCancelled](f)),
		d.OnRouterJobCompleted(forward[routerevents.RouterJobCompleted](f)),
		d.OnRouterJobClosed(forward[routerevents.RouterJobClosed](f)),
		d.OnRouterWorkerOfferIssued(forward[routerevents.RouterWorkerOfferIssued](f)),
		d.OnRouterWorkerOfferAccepted(forward[routerevents.RouterWorkerOfferAccepted](f)),
	)
}

func detachAll(unsubs ...func()) func() {
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
