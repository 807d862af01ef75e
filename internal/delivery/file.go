package delivery

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/Enriquefft/acs-eventhandler/internal/eventgrid"
)

// FileSource replays envelopes from a file. The file is either one webhook
// body (a JSON array or object) or JSON Lines, one body per line.
type FileSource struct {
	Path string
}

// Run reads the file and emits its envelopes in order, then returns.
func (f *FileSource) Run(ctx context.Context, out chan<- eventgrid.Envelope) error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("read replay file: %w", err)
	}

	envs, err := ReadEnvelopes(data)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Path, err)
	}

	for _, env := range envs {
		select {
		case out <- env:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ReadEnvelopes parses data as a single webhook body, falling back to JSON
// Lines when that fails.
func ReadEnvelopes(data []byte) ([]eventgrid.Envelope, error) {
	if envs, err := eventgrid.Parse(data); err == nil {
		return envs, nil
	}

	var envs []eventgrid.Envelope
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		batch, err := eventgrid.Parse(b)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		envs = append(envs, batch...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(envs) == 0 {
		return nil, eventgrid.ErrEmptyBody
	}
	return envs, nil
}
