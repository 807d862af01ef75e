package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Enriquefft/acs-eventhandler/internal/eventgrid"
	"github.com/Enriquefft/acs-eventhandler/internal/security"
)

// DefaultPath is where event subscriptions deliver when no path is configured.
const DefaultPath = "/api/events"

const maxBodyBytes = 1 << 20

// Server is an HTTP webhook receiver that implements delivery.Source. It
// accepts Event Grid and CloudEvents deliveries, answers the subscription
// handshakes, and emits every other envelope.
type Server struct {
	Addr   string
	Path   string
	Logger zerolog.Logger
	// Guard restricts and throttles delivery origins. Nil allows all.
	Guard *security.Guard
	seen  sync.Map // envelope ID → struct{}
}

// MarkSeen records an envelope ID so it won't be emitted again.
// Returns true if the ID was already seen.
func (s *Server) MarkSeen(id string) bool {
	_, loaded := s.seen.LoadOrStore(id, struct{}{})
	return loaded
}

// CleanSeen clears the seen set. The worst case after a cleanup is one
// redelivered event being emitted twice.
func (s *Server) CleanSeen() {
	s.seen.Range(func(key, _ any) bool {
		s.seen.Delete(key)
		return true
	})
}

// Run starts the webhook HTTP server and emits envelopes on out. It blocks
// until ctx is cancelled, at which point the server is gracefully shut down.
func (s *Server) Run(ctx context.Context, out chan<- eventgrid.Envelope) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(out),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	s.Logger.Info().Str("addr", ln.Addr().String()).Str("path", s.path()).Msg("webhook server listening")

	// Shut down gracefully when ctx is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook serve: %w", err)
	}
	return nil
}

// Handler returns the server's routes: the delivery endpoint and /health.
func (s *Server) Handler(out chan<- eventgrid.Envelope) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path(), s.webhookHandler(out))
	mux.HandleFunc("/health", handleHealth)
	return mux
}

func (s *Server) path() string {
	if s.Path == "" {
		return DefaultPath
	}
	return s.Path
}

// webhookHandler returns an http.HandlerFunc that processes the CloudEvents
// abuse-protection handshake (OPTIONS) and event delivery (POST).
func (s *Server) webhookHandler(out chan<- eventgrid.Envelope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodOptions:
			s.handleOptions(w, r)
		case http.MethodPost:
			s.handleEvent(w, r, out)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleOptions answers the CloudEvents webhook validation request.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("WebHook-Request-Origin")
	if origin == "" {
		http.Error(w, "missing WebHook-Request-Origin", http.StatusBadRequest)
		return
	}
	if !s.Guard.Allowed(origin) {
		s.Logger.Warn().Str("origin", origin).Msg("webhook: validation from unknown origin")
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	s.Logger.Info().Str("origin", origin).Msg("webhook: cloudevents validation")
	w.Header().Set("WebHook-Allowed-Origin", origin)
	w.Header().Set("WebHook-Allowed-Rate", s.Guard.AllowedRate())
	w.WriteHeader(http.StatusOK)
}

// handleEvent parses a delivery and emits each envelope. A subscription
// validation event is answered in the response body instead.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, out chan<- eventgrid.Envelope) {
	origin := requestOrigin(r)
	switch s.Guard.Check(origin) {
	case security.Deny:
		s.Logger.Warn().Str("origin", origin).Msg("webhook: delivery from unknown origin")
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	case security.RateLimited:
		s.Logger.Warn().Str("origin", origin).Msg("webhook: delivery rate limited")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	envs, err := eventgrid.ParseRequest(r)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("webhook: invalid delivery")
		http.Error(w, "invalid event payload", http.StatusBadRequest)
		return
	}

	for _, env := range envs {
		if !env.IsValidation() {
			continue
		}
		code, err := env.ValidationCode()
		if err != nil {
			s.Logger.Warn().Err(err).Msg("webhook: subscription validation failed")
			http.Error(w, "invalid validation event", http.StatusBadRequest)
			return
		}
		s.Logger.Info().Str("id", env.ID).Msg("webhook: subscription validation successful")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(eventgrid.ValidationResponse{ValidationResponse: code})
		return
	}

	// An ID is marked seen before its hand-off and released again if the
	// hand-off does not complete, so a retried delivery is not dropped.
	for _, env := range envs {
		if env.ID != "" && s.MarkSeen(env.ID) {
			s.Logger.Debug().Str("id", env.ID).Msg("webhook: skipping duplicate event")
			continue
		}
		select {
		case out <- env:
			s.Logger.Debug().Str("id", env.ID).Str("type", env.Type).Msg("webhook: received event")
		case <-r.Context().Done():
			if env.ID != "" {
				s.seen.Delete(env.ID)
			}
			s.Logger.Warn().Str("id", env.ID).Msg("webhook: delivery aborted before hand-off")
			http.Error(w, "delivery not accepted", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// requestOrigin identifies the sender of a delivery: the CloudEvents
// WebHook-Request-Origin header when present, else the peer address.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("WebHook-Request-Origin"); origin != "" {
		return origin
	}
	return r.RemoteAddr
}

// handleHealth returns 200 OK for the CLI status command.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}
