package delivery

import (
	"context"

	"github.com/Enriquefft/acs-eventhandler/internal/eventgrid"
)

// Source produces event envelopes from a delivery channel (webhook, replay
// file, etc.).
type Source interface {
	Run(ctx context.Context, out chan<- eventgrid.Envelope) error
}
