package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/naka-gawa/ctrl/internal/domain"
)

// responseTypeInChannel makes slash command responses visible to the whole channel.
const responseTypeInChannel = "in_channel"

// ResponseTarget says where a command response goes. ResponseURL wins when set.
type ResponseTarget struct {
	ResponseURL string
	ChannelID   string
}

// Responder delivers command results to Slack.
type Responder interface {
	Respond(ctx context.Context, target ResponseTarget, result domain.Result) error
}

// slackPoster is the subset of *slack.Client used for channel messages.
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackGateway is the concrete Responder backed by the Slack Web API.
type SlackGateway struct {
	client      slackPoster
	postWebhook func(ctx context.Context, url string, msg *slack.WebhookMessage) error
	logger      *zap.Logger
}

// NewSlackGateway creates a gateway around a Slack client. client may be nil,
// in which case only response URLs can be answered.
func NewSlackGateway(client *slack.Client, logger *zap.Logger) *SlackGateway {
	s := &SlackGateway{
		postWebhook: slack.PostWebhookContext,
		logger:      logger,
	}
	if client != nil {
		s.client = client
	}
	return s
}

// Respond renders result and posts it, either through the slash command's
// response URL or as a regular channel message.
func (s *SlackGateway) Respond(ctx context.Context, target ResponseTarget, result domain.Result) error {
	text, blocks := RenderResult(result)

	if target.ResponseURL != "" {
		msg := &slack.WebhookMessage{
			Text:         text,
			ResponseType: responseTypeInChannel,
		}
		if len(blocks) > 0 {
			msg.Blocks = &slack.Blocks{BlockSet: blocks}
		}
		if err := s.postWebhook(ctx, target.ResponseURL, msg); err != nil {
			return fmt.Errorf("failed to post to response url: %w", err)
		}
		s.logger.Debug("Response sent via response url")
		return nil
	}

	if target.ChannelID == "" {
		return fmt.Errorf("no response target")
	}
	if s.client == nil {
		return fmt.Errorf("slack bot token not configured, cannot post to channel %s", target.ChannelID)
	}
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}
	if _, _, err := s.client.PostMessageContext(ctx, target.ChannelID, opts...); err != nil {
		return fmt.Errorf("failed to post message to %s: %w", target.ChannelID, err)
	}
	s.logger.Debug("Response posted to channel", zap.String("channel", target.ChannelID))
	return nil
}

// RenderResult converts a result into fallback text and, for rich results, blocks.
func RenderResult(result domain.Result) (string, []slack.Block) {
	switch result.Kind {
	case domain.ResultProjectList:
		return renderProjectList(result)
	case domain.ResultText:
		block := slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, result.Text, false, false), nil, nil)
		return result.Text, []slack.Block{block}
	default:
		return result.Text, nil
	}
}

func renderProjectList(result domain.Result) (string, []slack.Block) {
	header := "Here's a list of all projects."
	if len(result.Projects) == 0 {
		header = "There are no projects yet. Use `/ctrl create <project_name>` to create one."
	}
	lines := []string{header}
	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, header, false, false), nil, nil),
	}

	for _, p := range result.Projects {
		text := fmt.Sprintf("%s in <#%s>", p.Name, p.Channel)
		if len(p.Owners) > 0 {
			text += fmt.Sprintf(".\nProject owners: %s", strings.Join(p.Owners, ", "))
		}
		lines = append(lines, text)

		var accessory *slack.Accessory
		if p.Repository != "" {
			button := slack.NewButtonBlockElement(
				"github",
				p.Repository,
				slack.NewTextBlockObject(slack.PlainTextType, "GitHub", true, false),
			)
			button.URL = "https://github.com/" + p.Repository
			accessory = slack.NewAccessory(button)
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, accessory,
		))
	}
	return strings.Join(lines, "\n"), blocks
}
