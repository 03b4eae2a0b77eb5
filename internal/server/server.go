// Package server exposes the bot over HTTP (slash commands, GitHub webhooks,
// health and metrics) and over Slack Socket Mode.
package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/naka-gawa/ctrl/internal/domain"
	"github.com/naka-gawa/ctrl/internal/gateway"
	"github.com/naka-gawa/ctrl/internal/metrics"
	"github.com/naka-gawa/ctrl/internal/usecase"
)

// notFoundMessage is returned for every unknown route.
const notFoundMessage = "You are using this tool incorrectly. Please use it through the command line or Slack."

const maxBodyBytes = 1 << 20

// Dispatcher accepts background work.
type Dispatcher interface {
	Submit(name string, job usecase.Job) (string, error)
	SubmitOnce(name string, job usecase.Job) (string, error)
}

// CommandHandler turns command text into a result.
type CommandHandler interface {
	Handle(ctx context.Context, inv usecase.Invocation, text string) domain.Result
}

// EventHandler reacts to GitHub pull request and review events.
type EventHandler interface {
	HandlePullRequest(ctx context.Context, ev domain.PullRequestEvent) error
	HandleReview(ctx context.Context, ev domain.ReviewEvent) error
}

// Options configures a Server.
type Options struct {
	SlackSigningSecret  string
	GitHubWebhookSecret string
}

// Server wires inbound transports to the use cases.
type Server struct {
	commands   CommandHandler
	events     EventHandler
	dispatcher Dispatcher
	responder  gateway.Responder
	metrics    *metrics.Recorder
	opts       Options
	logger     *zap.Logger
}

// New creates a Server.
func New(commands CommandHandler, events EventHandler, dispatcher Dispatcher, responder gateway.Responder, rec *metrics.Recorder, opts Options, logger *zap.Logger) *Server {
	return &Server{
		commands:   commands,
		events:     events,
		dispatcher: dispatcher,
		responder:  responder,
		metrics:    rec,
		opts:       opts,
		logger:     logger,
	}
}

// Handler returns the HTTP routes of the bot.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /slack", s.handleSlashCommand)
	mux.HandleFunc("POST /github", s.handleGitHubWebhook)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok")
	})
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, notFoundMessage, http.StatusNotFound)
	})
	return mux
}

// EnqueueCommand acknowledges nothing itself; it schedules the command and its
// response delivery. The command runs once and only delivery is retried.
func (s *Server) EnqueueCommand(inv usecase.Invocation, target gateway.ResponseTarget, text string) error {
	var result *domain.Result
	_, err := s.dispatcher.Submit("slash_command", func(ctx context.Context) error {
		if result == nil {
			res := s.commands.Handle(ctx, inv, text)
			result = &res
		}
		return s.responder.Respond(ctx, target, *result)
	})
	return err
}

func (s *Server) handleSlashCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "unable to read request", http.StatusBadRequest)
		return
	}

	if s.opts.SlackSigningSecret != "" {
		verifier, err := slack.NewSecretsVerifier(r.Header, s.opts.SlackSigningSecret)
		if err != nil {
			s.logger.Warn("Rejected slash command without valid signature headers", zap.Error(err))
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		if _, err := verifier.Write(body); err != nil {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		if err := verifier.Ensure(); err != nil {
			s.logger.Warn("Rejected slash command with bad signature", zap.Error(err))
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		http.Error(w, "invalid slash command", http.StatusBadRequest)
		return
	}

	s.logger.Info("Received slash command",
		zap.String("command", cmd.Command),
		zap.String("text", cmd.Text),
		zap.String("user", cmd.UserID),
		zap.String("channel", cmd.ChannelID))

	inv := usecase.Invocation{UserID: cmd.UserID, ChannelID: cmd.ChannelID}
	target := gateway.ResponseTarget{ResponseURL: cmd.ResponseURL, ChannelID: cmd.ChannelID}
	if err := s.EnqueueCommand(inv, target, cmd.Text); err != nil {
		s.logger.Error("Failed to enqueue slash command", zap.Error(err))
		http.Error(w, "busy, please retry", http.StatusServiceUnavailable)
		return
	}
	// Respond in the background.
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	wh, err := gateway.DecodeWebhook(r, []byte(s.opts.GitHubWebhookSecret))
	switch {
	case errors.Is(err, gateway.ErrMissingEventHeader):
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	case errors.Is(err, gateway.ErrUnsupportedEvent):
		s.logger.Debug("Ignoring GitHub event", zap.String("event", wh.Event))
		s.metrics.ObserveEvent(wh.Event, "", "ignored")
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		s.logger.Warn("Rejected GitHub webhook", zap.Error(err))
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	s.logger.Info("Received GitHub event", zap.String("event", wh.Event), zap.String("delivery", wh.DeliveryID))
	var job usecase.Job
	switch {
	case wh.PullRequest != nil:
		ev := *wh.PullRequest
		job = func(ctx context.Context) error { return s.events.HandlePullRequest(ctx, ev) }
	case wh.Review != nil:
		ev := *wh.Review
		job = func(ctx context.Context) error { return s.events.HandleReview(ctx, ev) }
	}
	if _, err := s.dispatcher.SubmitOnce(wh.Event, job); err != nil {
		s.logger.Error("Failed to enqueue GitHub event", zap.Error(err))
		http.Error(w, "busy, please retry", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
