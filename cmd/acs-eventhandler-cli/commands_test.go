package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Enriquefft/acs-eventhandler/internal/gateway"
	"github.com/Enriquefft/acs-eventhandler/internal/handler"
)

const replayBody = `[
  {
    "id": "evt-1",
    "eventType": "Microsoft.Communication.CallConnected",
    "subject": "calling/callConnections/c-1",
    "eventTime": "2026-10-19T10:00:00Z",
    "data": {"callConnectionId": "c-1", "serverCallId": "s-1", "correlationId": "corr-1"}
  },
  {
    "id": "evt-2",
    "eventType": "Microsoft.Communication.RouterJobCancelled",
    "subject": "job/j-1",
    "eventTime": "2026-10-19T10:00:01Z",
    "data": {"jobId": "j-1", "channelReference": "ref", "channelId": "voice", "dispositionCode": "abandoned"}
  },
  {
    "id": "evt-3",
    "eventType": "Microsoft.Communication.ChatMessageReceived",
    "subject": "thread/t-1",
    "eventTime": "2026-10-19T10:00:02Z",
    "data": {}
  }
]`

func writeReplayFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestKindsCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"kinds"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, handler.NewCatalog().Len())
	assert.Contains(t, lines, "Microsoft.Communication.CallConnected")
	assert.Contains(t, lines, "Microsoft.Communication.RouterJobClassified")
}

func TestReplayPrintsDispatchedEvents(t *testing.T) {
	path := writeReplayFile(t, replayBody)

	var out, errOut bytes.Buffer
	require.NoError(t, replay(context.Background(), path, false, &out, &errOut))

	dec := json.NewDecoder(&out)
	var msgs []gateway.Message
	for dec.More() {
		var m gateway.Message
		require.NoError(t, dec.Decode(&m))
		msgs = append(msgs, m)
	}
	require.Len(t, msgs, 2)

	assert.Equal(t, "CallConnected", msgs[0].Type)
	assert.Equal(t, "calling", msgs[0].Source)
	assert.Equal(t, "corr-1", msgs[0].ContextID)

	assert.Equal(t, "RouterJobCancelled", msgs[1].Type)
	assert.Equal(t, "jobrouter", msgs[1].Source)
	assert.Equal(t, "job/j-1", msgs[1].ContextID)

	assert.Equal(t, "3 events: 2 dispatched, 1 skipped, 0 failed\n", errOut.String())
}

func TestReplayStrictFailsOnUnknownEvent(t *testing.T) {
	path := writeReplayFile(t, replayBody)

	var out, errOut bytes.Buffer
	err := replay(context.Background(), path, true, &out, &errOut)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ChatMessageReceived")
	assert.Contains(t, errOut.String(), "2 dispatched, 0 skipped, 1 failed")
}

func TestReplayMissingFile(t *testing.T) {
	var out, errOut bytes.Buffer
	err := replay(context.Background(), filepath.Join(t.TempDir(), "nope.json"), false, &out, &errOut)
	assert.Error(t, err)
	assert.Empty(t, out.String())
}

func TestStatus(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer healthy.Close()

	var out bytes.Buffer
	require.NoError(t, status(healthy.URL+"/", &out))
	assert.Equal(t, "webhook server: ok\n", out.String())

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	err := status(broken.URL, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
