// Package security implements webhook abuse protection: an optional
// allowlist of delivery origins and a per-origin rate limit.
package security

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Enriquefft/acs-eventhandler/internal/config"
)

// Verdict represents the outcome of a guard check.
type Verdict int

const (
	Allow Verdict = iota
	Deny
	RateLimited
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case RateLimited:
		return "rate_limited"
	}
	return "unknown"
}

// bucket tracks rate limit state for a single origin.
type bucket struct {
	tokens    int
	windowEnd time.Time
}

// Guard decides whether a delivery origin may hand events to the webhook.
// The zero value is not usable; a nil *Guard allows everything.
type Guard struct {
	mode       string
	origins    map[string]struct{}
	rateLimit  int
	rateWindow time.Duration
	now        func() time.Time
	mu         sync.Mutex
	buckets    map[string]*bucket
}

// New creates a Guard from the security config.
func New(cfg config.SecurityConfig) *Guard {
	origins := make(map[string]struct{}, len(cfg.Origins))
	for _, o := range cfg.Origins {
		if n := Normalize(o); n != "" {
			origins[n] = struct{}{}
		}
	}

	return &Guard{
		mode:       cfg.Mode,
		origins:    origins,
		rateLimit:  cfg.RateLimit,
		rateWindow: time.Duration(cfg.RateWindow) * time.Second,
		now:        time.Now,
		buckets:    make(map[string]*bucket),
	}
}

// Allowed reports whether origin passes the allowlist. It does not consume
// rate-limit tokens, so it suits the validation handshake.
func (g *Guard) Allowed(origin string) bool {
	if g == nil || g.mode != "allowlist" {
		return true
	}
	_, ok := g.origins[Normalize(origin)]
	return ok
}

// Check returns Allow, Deny, or RateLimited for one delivery from origin.
// A rate limit of zero disables throttling.
func (g *Guard) Check(origin string) Verdict {
	if g == nil {
		return Allow
	}
	if !g.Allowed(origin) {
		return Deny
	}
	if g.rateLimit <= 0 {
		return Allow
	}

	n := Normalize(origin)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	b, ok := g.buckets[n]
	if !ok || now.After(b.windowEnd) {
		g.buckets[n] = &bucket{
			tokens:    g.rateLimit - 1,
			windowEnd: now.Add(g.rateWindow),
		}
		return Allow
	}

	if b.tokens <= 0 {
		return RateLimited
	}
	b.tokens--
	return Allow
}

// AllowedRate is the value advertised in the WebHook-Allowed-Rate header:
// deliveries per minute, or "*" when unthrottled.
func (g *Guard) AllowedRate() string {
	if g == nil || g.rateLimit <= 0 || g.rateWindow <= 0 {
		return "*"
	}
	perMinute := int(float64(g.rateLimit) * float64(time.Minute) / float64(g.rateWindow))
	if perMinute < 1 {
		perMinute = 1
	}
	return strconv.Itoa(perMinute)
}

// Prune drops buckets whose window has ended.
func (g *Guard) Prune() {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, b := range g.buckets {
		if now.After(b.windowEnd) {
			delete(g.buckets, k)
		}
	}
}

// Normalize lowercases an origin and strips any scheme, port and path, so
// "https://EventGrid.azure.net:443/x" and "eventgrid.azure.net" compare
// equal. Bare IP addresses are returned without their port.
func Normalize(origin string) string {
	o := strings.ToLower(strings.TrimSpace(origin))
	if i := strings.Index(o, "://"); i >= 0 {
		o = o[i+3:]
	}
	if i := strings.IndexByte(o, '/'); i >= 0 {
		o = o[:i]
	}
	if host, _, err := net.SplitHostPort(o); err == nil {
		o = host
	}
	return strings.Trim(o, "[]")
}
