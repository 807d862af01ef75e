package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Enriquefft/acs-eventhandler/internal/calling"
	"github.com/Enriquefft/acs-eventhandler/internal/catalog"
	"github.com/Enriquefft/acs-eventhandler/internal/delivery"
	"github.com/Enriquefft/acs-eventhandler/internal/eventgrid"
	"github.com/Enriquefft/acs-eventhandler/internal/gateway"
	"github.com/Enriquefft/acs-eventhandler/internal/handler"
	"github.com/Enriquefft/acs-eventhandler/internal/jobrouter"
	"github.com/Enriquefft/acs-eventhandler/internal/logging"
	"github.com/Enriquefft/acs-eventhandler/internal/notify"
)

// NewRootCmd builds the CLI command tree.
func NewRootCmd() *cobra.Command {
	var level string

	rootCmd := &cobra.Command{
		Use:   "acs-eventhandler-cli",
		Short: "Inspect and replay Communication Services events",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(level, nil)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&level, "log-level", "warn", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newKindsCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newStatusCmd())
	return rootCmd
}

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List every event type the handler recognizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events := handler.NewCatalog()
			out := cmd.OutOrStdout()
			for _, name := range events.Names() {
				fmt.Fprintf(out, "%s%s\n", catalog.Prefix, name)
			}
			return nil
		},
	}
}

func newReplayCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Feed a file of webhook bodies through the dispatch pipeline",
		Long: `Replay reads a JSON webhook body, or JSON Lines with one body per line,
and dispatches every envelope exactly as the webhook server would. Each
dispatched event is printed as one JSON line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return replay(cmd.Context(), args[0], strict, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on event types that are not recognized")
	return cmd
}

// printSender writes forwarded events as JSON lines.
type printSender struct {
	enc *json.Encoder
}

func (p printSender) Send(msg gateway.Message) error {
	return p.enc.Encode(msg)
}

func replay(ctx context.Context, path string, strict bool, out, errOut io.Writer) error {
	events := handler.NewCatalog(catalog.WithStrict(strict))
	callDispatcher := calling.NewDispatcher()
	jobDispatcher := jobrouter.NewDispatcher()

	fwd := &gateway.Forwarder{
		Client: printSender{enc: json.NewEncoder(out)},
		Logger: logging.For("replay"),
	}
	defer fwd.AttachCalling(callDispatcher)()
	defer fwd.AttachJobRouter(jobDispatcher)()

	proc := handler.New(events, []notify.Dispatcher{callDispatcher, jobDispatcher},
		handler.WithStrict(strict),
		handler.WithLogger(logging.For("replay")),
	)

	src := &delivery.FileSource{Path: path}
	ch := make(chan eventgrid.Envelope, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- src.Run(ctx, ch)
		close(ch)
	}()

	var total, dispatched, skipped int
	var failures []string
	for env := range ch {
		if env.IsValidation() {
			continue
		}
		total++
		ok, err := proc.Process(env)
		switch {
		case err != nil:
			failures = append(failures, err.Error())
		case ok:
			dispatched++
		default:
			skipped++
		}
	}
	if err := <-errCh; err != nil {
		return err
	}

	fmt.Fprintf(errOut, "%d events: %d dispatched, %d skipped, %d failed\n",
		total, dispatched, skipped, len(failures))
	if len(failures) > 0 {
		return fmt.Errorf("replay failed:\n  %s", strings.Join(failures, "\n  "))
	}
	return nil
}

func newStatusCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check webhook server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = os.Getenv("ACS_EVENTS_WEBHOOK_URL")
			}
			if addr == "" {
				addr = "http://localhost:18790"
			}
			return status(addr, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Webhook server base URL (default $ACS_EVENTS_WEBHOOK_URL or http://localhost:18790)")
	return cmd
}

func status(addr string, out io.Writer) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimSuffix(addr, "/") + "/health")
	if err != nil {
		return fmt.Errorf("webhook server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook server: unhealthy (status %d)", resp.StatusCode)
	}
	fmt.Fprintln(out, "webhook server: ok")
	return nil
}
