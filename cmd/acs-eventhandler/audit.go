package main

import (
	"github.com/rs/zerolog"

	callingevents "github.com/Enriquefft/acs-eventhandler/internal/contracts/calling"
	routerevents "github.com/Enriquefft/acs-eventhandler/internal/contracts/jobrouter"
	"github.com/Enriquefft/acs-eventhandler/internal/notify"
)

// auditLog writes one line per call and job lifecycle milestone.
type auditLog struct {
	logger zerolog.Logger
}

func (a *auditLog) HandleIncomingCall(sender notify.Sender, args notify.Args[callingevents.IncomingCall]) error {
	a.logger.Info().
		Str("source", sender.Name()).
		Str("context_id", args.ContextID).
		Str("from", args.Event.From.RawID).
		Str("to", args.Event.To.RawID).
		Msg("incoming call")
	return nil
}

func (a *auditLog) HandleCallConnected(sender notify.Sender, args notify.Args[callingevents.CallConnected]) error {
	a.logger.Info().
		Str("source", sender.Name()).
		Str("context_id", args.ContextID).
		Str("call_connection_id", args.Event.CallConnectionID).
		Msg("call connected")
	return nil
}

func (a *auditLog) HandleCallDisconnected(sender notify.Sender, args notify.Args[callingevents.CallDisconnected]) error {
	a.logger.Info().
		Str("source", sender.Name()).
		Str("context_id", args.ContextID).
		Str("call_connection_id", args.Event.CallConnectionID).
		Msg("call disconnected")
	return nil
}

func (a *auditLog) HandleRouterJobReceived(sender notify.Sender, args notify.Args[routerevents.RouterJobReceived]) error {
	a.logger.Info().
		Str("source", sender.Name()).
		Str("context_id", args.ContextID).
		Str("job_id", args.Event.JobID).
		Str("queue_id", args.Event.QueueID).
		Msg("job received")
	return nil
}

func (a *auditLog) HandleRouterJobCancelled(sender notify.Sender, args notify.Args[routerevents.RouterJobCancelled]) error {
	a.logger.Info().
		Str("source", sender.Name()).
		Str("context_id", args.ContextID).
		Str("job_id", args.Event.JobID).
		Msg("job cancelled")
	return nil
}

func (a *auditLog) HandleRouterJobClosed(sender notify.Sender, args notify.Args[routerevents.RouterJobClosed]) error {
	a.logger.Info().
		Str("source", sender.Name()).
		Str("context_id", args.ContextID).
		Str("job_id", args.Event.JobID).
		Msg("job closed")
	return nil
}
