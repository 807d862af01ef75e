// Package tailscale exposes the webhook on a public HTTPS URL through
// `tailscale funnel`, so an Event Grid subscription can reach a host that
// has no public address of its own.
package tailscale

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// ErrNoDNSName is returned when the node reports no MagicDNS name.
var ErrNoDNSName = errors.New("tailscale: empty DNS name, is the node connected?")

// tsStatus is a minimal subset of `tailscale status --json` output.
type tsStatus struct {
	Self struct {
		DNSName string `json:"DNSName"`
	} `json:"Self"`
}

// Funnel runs `tailscale funnel` for the webhook listener.
type Funnel struct {
	// Bin is the tailscale executable; empty means "tailscale" from PATH.
	Bin string
	// Addr is the webhook listen address; only its port is funnelled.
	Addr string
	// Path is appended to the public base URL.
	Path   string
	Logger zerolog.Logger
}

func (f *Funnel) bin() string {
	if f.Bin == "" {
		return "tailscale"
	}
	return f.Bin
}

// EnsureInstalled checks that the tailscale CLI is available.
func (f *Funnel) EnsureInstalled() error {
	if _, err := exec.LookPath(f.bin()); err != nil {
		return fmt.Errorf("tailscale CLI not found: %w", err)
	}
	return nil
}

// PublicURL returns the deterministic HTTPS URL of this node,
// e.g. "https://machine.tailnet.ts.net".
func (f *Funnel) PublicURL(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, f.bin(), "status", "--json").Output()
	if err != nil {
		return "", fmt.Errorf("tailscale status: %w", err)
	}
	return parseStatus(out)
}

// Start runs `tailscale funnel <port>` until ctx is cancelled and returns
// the public webhook URL to register with the event subscription.
func (f *Funnel) Start(ctx context.Context) (string, error) {
	if err := f.EnsureInstalled(); err != nil {
		return "", err
	}

	port, err := listenPort(f.Addr)
	if err != nil {
		return "", err
	}

	baseURL, err := f.PublicURL(ctx)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, f.bin(), "funnel", port)
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start tailscale funnel: %w", err)
	}
	go func() {
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			f.Logger.Error().Err(err).Msg("tailscale funnel exited")
		}
	}()

	webhookURL := baseURL + f.Path
	f.Logger.Info().Str("port", port).Str("url", webhookURL).Msg("tailscale funnel started")
	return webhookURL, nil
}

func parseStatus(out []byte) (string, error) {
	var status tsStatus
	if err := json.Unmarshal(out, &status); err != nil {
		return "", fmt.Errorf("parse tailscale status: %w", err)
	}

	dns := strings.TrimSuffix(status.Self.DNSName, ".")
	if dns == "" {
		return "", ErrNoDNSName
	}
	return "https://" + dns, nil
}

func listenPort(addr string) (string, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("webhook addr %q: %w", addr, err)
	}
	if port == "" {
		return "", fmt.Errorf("webhook addr %q has no port", addr)
	}
	return port, nil
}
