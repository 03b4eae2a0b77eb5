package server

import (
	"context"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"github.com/naka-gawa/ctrl/internal/gateway"
	"github.com/naka-gawa/ctrl/internal/usecase"
)

// SocketClient is the subset of *socketmode.Client the listener needs.
type SocketClient interface {
	RunContext(ctx context.Context) error
	Ack(req socketmode.Request, payload ...interface{})
}

// SocketListener receives slash commands over a Socket Mode connection and
// posts responses to the originating channel.
type SocketListener struct {
	client SocketClient
	events <-chan socketmode.Event
	server *Server
	logger *zap.Logger
}

// NewSocketListener creates a listener for a Socket Mode client.
func NewSocketListener(client *socketmode.Client, server *Server, logger *zap.Logger) *SocketListener {
	return &SocketListener{client: client, events: client.Events, server: server, logger: logger}
}

// Run connects and processes events until ctx is done.
func (l *SocketListener) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- l.client.RunContext(ctx) }()

	for {
		select {
		case <-ctx.Done():
			<-errCh
			return nil
		case err := <-errCh:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case evt, ok := <-l.events:
			if !ok {
				if err := <-errCh; ctx.Err() == nil {
					return err
				}
				return nil
			}
			l.handle(evt)
		}
	}
}

func (l *SocketListener) handle(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		l.logger.Info("Connecting to Slack with Socket Mode")
	case socketmode.EventTypeConnectionError:
		l.logger.Warn("Socket Mode connection failed, retrying")
	case socketmode.EventTypeConnected:
		l.logger.Info("Connected to Slack with Socket Mode")
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			l.logger.Warn("Ignoring malformed slash command event")
			return
		}
		if evt.Request != nil {
			l.client.Ack(*evt.Request)
		}
		l.logger.Info("Received slash command",
			zap.String("command", cmd.Command),
			zap.String("text", cmd.Text),
			zap.String("user", cmd.UserID),
			zap.String("channel", cmd.ChannelID))

		inv := usecase.Invocation{UserID: cmd.UserID, ChannelID: cmd.ChannelID}
		target := gateway.ResponseTarget{ChannelID: cmd.ChannelID}
		if err := l.server.EnqueueCommand(inv, target, cmd.Text); err != nil {
			l.logger.Error("Failed to enqueue slash command", zap.Error(err))
		}
	default:
		l.logger.Debug("Ignoring Socket Mode event", zap.String("type", string(evt.Type)))
	}
}
