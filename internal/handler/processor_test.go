package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Enriquefft/acs-eventhandler/internal/calling"
	"github.com/Enriquefft/acs-eventhandler/internal/catalog"
	callingevents "github.com/Enriquefft/acs-eventhandler/internal/contracts/calling"
	routerevents "github.com/Enriquefft/acs-eventhandler/internal/contracts/jobrouter"
	"github.com/Enriquefft/acs-eventhandler/internal/eventgrid"
	"github.com/Enriquefft/acs-eventhandler/internal/jobrouter"
	"github.com/Enriquefft/acs-eventhandler/internal/notify"
)

func newPipeline(opts ...Option) (*Processor, *calling.Dispatcher, *jobrouter.Dispatcher) {
	cd := calling.NewDispatcher()
	jd := jobrouter.NewDispatcher()
	p := New(NewCatalog(), []notify.Dispatcher{cd, jd}, opts...)
	return p, cd, jd
}

func TestProcessRoutesByGeneration(t *testing.T) {
	p, cd, jd := newPipeline()

	var connected notify.Args[callingevents.CallConnected]
	cd.OnCallConnected(func(_ notify.Sender, args notify.Args[callingevents.CallConnected]) error {
		connected = args
		return nil
	})
	var cancelled *routerevents.RouterJobCancelled
	jd.OnRouterJobCancelled(func(_ notify.Sender, args notify.Args[routerevents.RouterJobCancelled]) error {
		cancelled = args.Event
		return nil
	})

	ok, err := p.Process(eventgrid.Envelope{
		ID:   "e-1",
		Type: "Microsoft.Communication.CallConnected",
		Data: []byte(`{"callConnectionId": "conn-1", "correlationId": "corr-1"}`),
	})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, connected.Event)
	assert.Equal(t, "conn-1", connected.Event.CallConnectionID)
	assert.Equal(t, "corr-1", connected.ContextID)

	ok, err = p.Process(eventgrid.Envelope{
		ID:      "e-2",
		Type:    "RouterJobCancelled",
		Subject: "job/job-7",
		Data:    []byte(`{"jobId": "job-7", "dispositionCode": "abandoned", "tags": {"vip": true}}`),
	})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, cancelled)
	assert.Equal(t, "job-7", cancelled.JobID)
	assert.Equal(t, true, cancelled.Tags["vip"])
}

func TestProcessUnknownIsSkipped(t *testing.T) {
	p, _, _ := newPipeline()
	ok, err := p.Process(eventgrid.Envelope{ID: "e-3", Type: "Microsoft.Communication.ChatMessageReceived"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcessStrictRejectsUnknown(t *testing.T) {
	p, _, _ := newPipeline(WithStrict(true))
	_, err := p.Process(eventgrid.Envelope{ID: "e-3", Type: "ChatMessageReceived"})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestProcessStrictRejectsUndispatchable(t *testing.T) {
	type Orphan struct{}
	c := catalog.Register[Orphan](NewCatalog())
	p := New(c, []notify.Dispatcher{calling.NewDispatcher()}, WithStrict(true))

	_, err := p.Process(eventgrid.Envelope{Type: "Orphan"})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = p.Process(eventgrid.Envelope{Type: "RouterJobQueued"})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestProcessDecodeError(t *testing.T) {
	p, _, _ := newPipeline()
	_, err := p.Process(eventgrid.Envelope{ID: "bad", Type: "CallConnected", Data: []byte(`{"callConnectionId": 5}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode CallConnected")
}

func TestProcessPropagatesSubscriberError(t *testing.T) {
	p, cd, _ := newPipeline()
	boom := errors.New("boom")
	cd.OnPlayFailed(func(_ notify.Sender, _ notify.Args[callingevents.PlayFailed]) error { return boom })

	ok, err := p.Process(eventgrid.Envelope{Type: "PlayFailed", Data: []byte(`{}`)})
	assert.True(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestProcessAllJoinsErrorsAndSkipsValidation(t *testing.T) {
	p, cd, _ := newPipeline()
	boom := errors.New("boom")
	calls := 0
	cd.OnCallDisconnected(func(_ notify.Sender, _ notify.Args[callingevents.CallDisconnected]) error {
		calls++
		return boom
	})

	err := p.ProcessAll([]eventgrid.Envelope{
		{Type: eventgrid.SubscriptionValidationEvent, Data: []byte(`{"validationCode": "x"}`)},
		{ID: "1", Type: "CallDisconnected"},
		{ID: "2", Type: "CallDisconnected"},
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestRunConsumesUntilClosed(t *testing.T) {
	p, _, jd := newPipeline()
	var got []string
	jd.OnRouterJobReceived(func(_ notify.Sender, args notify.Args[routerevents.RouterJobReceived]) error {
		got = append(got, args.Event.JobID)
		return nil
	})

	in := make(chan eventgrid.Envelope, 3)
	in <- eventgrid.Envelope{Type: "RouterJobReceived", Data: []byte(`{"jobId": "a"}`)}
	in <- eventgrid.Envelope{Type: "RouterJobReceived", Data: []byte(`{"jobId": `)}
	in <- eventgrid.Envelope{Type: "RouterJobReceived", Data: []byte(`{"jobId": "b"}`)}
	close(in)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx, in))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestRunStopsOnCancel(t *testing.T) {
	p, _, _ := newPipeline()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Run(ctx, make(chan eventgrid.Envelope))
	assert.ErrorIs(t, err, context.Canceled)
}
