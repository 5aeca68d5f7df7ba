// Package webhook receives GitHub webhook deliveries and hands matching
// events to the pipeline dispatcher.
package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/time/rate"

	"github.com/nathantilsley/compat-sentry/internal/pipeline/domain"
)

// Dispatcher runs the pipeline for one repository event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.Event) error
}

// defaultDispatchTimeout bounds a single pipeline run kicked off by a
// delivery. Environment solves and test suites are slow; be generous.
const defaultDispatchTimeout = 30 * time.Minute

// Server validates webhook deliveries, filters them down to the events the
// pipeline cares about, and dispatches runs asynchronously.
type Server struct {
	dispatcher      Dispatcher
	secret          []byte
	limiter         rateLimiter
	dispatchTimeout time.Duration
	logger          *slog.Logger
}

// Option configures Server behaviour.
type Option func(*Server)

// WithRateLimiter overrides the default delivery rate limiter (primarily for
// tests).
func WithRateLimiter(limiter rateLimiter) Option {
	return func(s *Server) { s.limiter = limiter }
}

// WithRateLimit sets the token bucket used to shed delivery bursts.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) { s.limiter = newTokenBucketLimiter(perSecond, burst) }
}

// WithDispatchTimeout bounds each dispatched pipeline run.
func WithDispatchTimeout(d time.Duration) Option {
	return func(s *Server) { s.dispatchTimeout = d }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New constructs a Server. secret is the webhook secret shared with GitHub;
// deliveries whose signature does not match are rejected.
func New(dispatcher Dispatcher, secret string, opts ...Option) *Server {
	s := &Server{
		dispatcher:      dispatcher,
		secret:          []byte(secret),
		limiter:         newTokenBucketLimiter(5, 10),
		dispatchTimeout: defaultDispatchTimeout,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler serving the webhook and health endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("POST /webhook", rateLimitMiddleware(s.limiter, http.HandlerFunc(s.handleWebhook)))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// handleWebhook answers 202 when a delivery is dispatched, 204 when the
// delivery is valid but not relevant to the pipeline.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, s.secret)
	if err != nil {
		s.logger.Warn("rejecting delivery with invalid signature", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		http.Error(w, "unparseable payload", http.StatusBadRequest)
		return
	}

	ev, ok := eventFromPayload(event)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.logger.Info("delivery accepted",
		"event", ev.Kind.String(),
		"repo", ev.Owner+"/"+ev.Repo,
		"ref", ev.Ref(),
	)
	go s.runDispatch(ev)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) runDispatch(ev domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
	defer cancel()

	if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
		s.logger.Error("dispatch failed",
			"event", ev.Kind.String(),
			"repo", ev.Owner+"/"+ev.Repo,
			"error", err,
		)
	}
}

// eventFromPayload maps a parsed webhook payload onto a pipeline event.
// Deliveries outside the pipeline's interest (tag pushes, branch deletions,
// PR label changes, other event types) report not-ok and are acknowledged
// without a run.
func eventFromPayload(event any) (domain.Event, bool) {
	switch e := event.(type) {
	case *github.PushEvent:
		branch, ok := strings.CutPrefix(e.GetRef(), "refs/heads/")
		if !ok || e.GetDeleted() {
			return domain.Event{}, false
		}
		return domain.Event{
			Kind:         domain.EventPush,
			Owner:        e.GetRepo().GetOwner().GetLogin(),
			Repo:         e.GetRepo().GetName(),
			Branch:       branch,
			HeadSHA:      e.GetAfter(),
			Installation: e.GetInstallation().GetID(),
		}, true

	case *github.PullRequestEvent:
		switch e.GetAction() {
		case "opened", "synchronize", "reopened":
		default:
			return domain.Event{}, false
		}
		pr := e.GetPullRequest()
		return domain.Event{
			Kind:         domain.EventPullRequest,
			Owner:        e.GetRepo().GetOwner().GetLogin(),
			Repo:         e.GetRepo().GetName(),
			PRNumber:     e.GetNumber(),
			BaseRef:      pr.GetBase().GetRef(),
			HeadRef:      pr.GetHead().GetRef(),
			HeadSHA:      pr.GetHead().GetSHA(),
			Installation: e.GetInstallation().GetID(),
		}, true

	default:
		return domain.Event{}, false
	}
}

type rateLimiter interface {
	Allow() bool
}

type limiterAdapter struct {
	limiter *rate.Limiter
}

func newTokenBucketLimiter(perSecond float64, burst int) rateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiterAdapter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *limiterAdapter) Allow() bool {
	if l == nil || l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})
}
