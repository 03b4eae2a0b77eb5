package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/ctrl/internal/gateway"
	"github.com/naka-gawa/ctrl/internal/metrics"
	"github.com/naka-gawa/ctrl/internal/server"
	"github.com/naka-gawa/ctrl/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the bot: Slack slash commands and GitHub webhooks",
	Long: `Runs the HTTP server that receives Slack slash commands on /slack and GitHub
webhooks on /github. When SLACK_APP_TOKEN is set, slash commands are also
received over Slack Socket Mode.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		cfg := loadConfig(cmd)
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.ListenAddr = addr
		}
		if err := cfg.ValidateServe(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Inject dependencies.
		rec := metrics.NewRecorder()

		registryPath, err := filepath.Abs(cfg.Registry.Path)
		if err != nil {
			return fmt.Errorf("failed to resolve registry path: %w", err)
		}
		publisher := gateway.NewGitSync(filepath.Dir(registryPath), cfg.GitHub.User, cfg.GitHub.Token, !cfg.GitHub.PushDisabled, logger)
		store := usecase.NewStore(gateway.NewFileRepository(registryPath, publisher, logger))

		githubGateway, err := gateway.NewGitHubGateway(cfg.GitHub.Token, logger)
		if err != nil {
			return fmt.Errorf("failed to create GitHub gateway: %w", err)
		}

		var slackClient *slack.Client
		if cfg.Slack.BotToken != "" {
			opts := []slack.Option{}
			if cfg.Slack.AppToken != "" {
				opts = append(opts, slack.OptionAppLevelToken(cfg.Slack.AppToken))
			}
			slackClient = slack.New(cfg.Slack.BotToken, opts...)
		}

		commands := usecase.NewCommandService(usecase.NewExecutor(store, logger), rec, logger)
		reactor := usecase.NewReactor(githubGateway, store, usecase.ReactorConfig{
			ProtectedBranches:    cfg.GitHub.ProtectedBranches,
			ProtectDefaultBranch: cfg.GitHub.ProtectDefaultBranch,
			FilterContributors:   cfg.GitHub.FilterContributors,
			CallTimeout:          cfg.GitHub.CallTimeout,
		}, rec, logger)
		dispatcher := usecase.NewDispatcher(usecase.DispatcherConfig{
			Workers:    cfg.Dispatch.Workers,
			QueueSize:  cfg.Dispatch.QueueSize,
			MaxRetries: cfg.Dispatch.Retries,
			Timeout:    cfg.Dispatch.Timeout,
			Backoff:    cfg.Dispatch.Backoff,
		}, rec, logger)

		srv := server.New(commands, reactor, dispatcher, gateway.NewSlackGateway(slackClient, logger), rec, server.Options{
			SlackSigningSecret:  cfg.Slack.SigningSecret,
			GitHubWebhookSecret: cfg.GitHub.WebhookSecret,
		}, logger)
		if cfg.Slack.SigningSecret == "" {
			logger.Warn("SLACK_SIGNING_SECRET is not set, slash commands are not verified")
		}

		httpServer := &http.Server{
			Addr:         cfg.HTTP.ListenAddr,
			Handler:      srv.Handler(),
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return dispatcher.Run(gctx)
		})
		g.Go(func() error {
			logger.Info("Listening", zap.String("addr", httpServer.Addr), zap.String("registry", registryPath))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			logger.Info("Shutting down")
			return httpServer.Shutdown(shutdownCtx)
		})
		if cfg.Slack.AppToken != "" {
			listener := server.NewSocketListener(socketmode.New(slackClient), srv, logger)
			g.Go(func() error {
				return listener.Run(gctx)
			})
		}

		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides CTRL_LISTEN_ADDR)")
}
