package channels

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	slackgo "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/pandaai/panda/internal/bus"
	"github.com/pandaai/panda/internal/config/channel"
)

// SlackChannel implements Slack via Socket Mode.
type SlackChannel struct {
	Base
	cfg       *channel.SlackConfig
	webClient *slackgo.Client
	smClient  *socketmode.Client
	botUserID string
	mention   *regexp.Regexp
}

func NewSlackChannel(cfg *channel.SlackConfig, inbound *bus.AgentBus) *SlackChannel {
	return &SlackChannel{
		Base: NewBase(bus.ChannelSlack, inbound, cfg.AllowFrom),
		cfg:  cfg,
	}
}

func (s *SlackChannel) Name() bus.Channel { return bus.ChannelSlack }

func (s *SlackChannel) Start(ctx context.Context) error {
	if s.cfg.BotToken == "" || s.cfg.AppToken == "" {
		slog.Warn("slack: bot/app token not configured")
		<-ctx.Done()
		return ctx.Err()
	}

	s.webClient = slackgo.New(s.cfg.BotToken, slackgo.OptionAppLevelToken(s.cfg.AppToken))

	if resp, err := s.webClient.AuthTestContext(ctx); err == nil {
		s.botUserID = resp.UserID
		s.mention = regexp.MustCompile(`<@` + regexp.QuoteMeta(s.botUserID) + `>\s*`)
		slog.Info("slack: connected", "bot_user_id", s.botUserID)
	} else {
		slog.Warn("slack: auth test failed", "err", err)
	}

	s.smClient = socketmode.New(s.webClient)
	go s.smClient.RunContext(ctx) //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-s.smClient.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, evt)
		}
	}
}

func (s *SlackChannel) handleEvent(ctx context.Context, evt socketmode.Event) {
	if evt.Type != socketmode.EventTypeEventsAPI {
		return
	}
	if evt.Request != nil {
		s.smClient.Ack(*evt.Request)
	}
	cb, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}
	switch ev := cb.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		s.handleIncoming(ctx, slackIncoming{
			evType:      "message",
			user:        ev.User,
			channel:     ev.Channel,
			channelType: ev.ChannelType,
			text:        ev.Text,
			subtype:     ev.SubType,
			ts:          ev.TimeStamp,
			threadTS:    ev.ThreadTimeStamp,
		})
	case *slackevents.AppMentionEvent:
		s.handleIncoming(ctx, slackIncoming{
			evType:   "app_mention",
			user:     ev.User,
			channel:  ev.Channel,
			text:     ev.Text,
			ts:       ev.TimeStamp,
			threadTS: ev.ThreadTimeStamp,
		})
	}
}

type slackIncoming struct {
	evType      string
	user        string
	channel     string
	channelType string
	text        string
	subtype     string
	ts          string
	threadTS    string
}

func (s *SlackChannel) handleIncoming(ctx context.Context, in slackIncoming) {
	if in.subtype != "" || in.user == "" || in.channel == "" || in.user == s.botUserID {
		return
	}
	mentioned := s.botUserID != "" && strings.Contains(in.text, "<@"+s.botUserID+">")
	// A mention arrives twice, as message and as app_mention.
	if in.evType == "message" && mentioned {
		return
	}
	if in.channelType != "im" && !s.shouldRespond(in.evType, mentioned) {
		return
	}

	text := in.text
	if s.mention != nil {
		text = strings.TrimSpace(s.mention.ReplaceAllString(text, ""))
	}
	threadTS := in.threadTS
	if s.cfg.ReplyInThread && threadTS == "" {
		threadTS = in.ts
	}

	msg := bus.NewAgentBusMessage(bus.ChannelSlack, in.user, in.channel, text, s.routingKey(in.channel, threadTS))
	msg.SetMetadata(map[string]any{
		"thread_ts":    threadTS,
		"channel_type": in.channelType,
	})
	if !s.HandleMessage(ctx, msg) {
		return
	}

	if s.cfg.ReactEmoji != "" && in.ts != "" {
		_ = s.webClient.AddReactionContext(ctx, s.cfg.ReactEmoji, slackgo.ItemRef{
			Channel:   in.channel,
			Timestamp: in.ts,
		})
	}
}

// routingKey gives each thread its own conversation when replies are threaded.
func (s *SlackChannel) routingKey(channelID, threadTS string) string {
	if !s.cfg.ReplyInThread || threadTS == "" {
		return ""
	}
	return bus.RoutingKey(bus.ChannelSlack, channelID, threadTS)
}

func (s *SlackChannel) shouldRespond(evType string, mentioned bool) bool {
	switch s.cfg.GroupPolicy {
	case "open":
		return true
	case "mention", "":
		return evType == "app_mention" || mentioned
	}
	return false
}

// Send posts the final reply, threaded when the inbound message was.
func (s *SlackChannel) Send(ctx context.Context, msg bus.ChannelMessage) error {
	if !msg.Final() || s.webClient == nil {
		return nil
	}
	threadTS, _ := msg.Metadata()["thread_ts"].(string)
	channelType, _ := msg.Metadata()["channel_type"].(string)

	options := []slackgo.MsgOption{slackgo.MsgOptionText(msg.Content(), false)}
	if threadTS != "" && channelType != "im" {
		options = append(options, slackgo.MsgOptionTS(threadTS))
	}

	_, _, err := s.webClient.PostMessageContext(ctx, msg.ChatId(), options...)
	return err
}
