package channels

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/pandaai/panda/internal/bus"
	"github.com/pandaai/panda/internal/config/channel"
	"github.com/pandaai/panda/internal/schema"
)

const (
	telegramMaxMessage  = 4000
	telegramMaxDownload = 20 << 20
)

// TelegramChannel implements the Telegram bot via long polling.
type TelegramChannel struct {
	Base
	cfg *channel.TelegramConfig
	bot *tgbotapi.BotAPI

	mu     sync.Mutex
	typing map[int64]context.CancelFunc // chat → stop typing indicator
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(cfg *channel.TelegramConfig, inbound *bus.AgentBus) *TelegramChannel {
	return &TelegramChannel{
		Base:   NewBase(bus.ChannelTelegram, inbound, cfg.AllowFrom),
		cfg:    cfg,
		typing: make(map[int64]context.CancelFunc),
	}
}

func (t *TelegramChannel) Name() bus.Channel { return bus.ChannelTelegram }

func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}
	bot, err := tgbotapi.NewBotAPI(t.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	t.bot = bot
	slog.Info("telegram: connected", "username", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go t.handleUpdate(ctx, update)
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			t.stopAllTyping()
			return ctx.Err()
		}
	}
}

func (t *TelegramChannel) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	senderID := strconv.FormatInt(msg.From.ID, 10)
	if msg.From.UserName != "" {
		senderID = senderID + "|" + msg.From.UserName
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	content := msg.Text
	if msg.Caption != "" {
		content = msg.Caption
	}
	if msg.IsCommand() && msg.Command() == "start" {
		content = "/help"
	}

	var attachments []schema.Attachment
	if len(msg.Photo) > 0 {
		photo := msg.Photo[len(msg.Photo)-1]
		if a, err := t.download(ctx, photo.FileID, "photo.jpg", "image/jpeg"); err == nil {
			attachments = append(attachments, a)
		} else {
			slog.Warn("telegram: photo download failed", "err", err)
		}
	}
	if msg.Document != nil {
		if a, err := t.download(ctx, msg.Document.FileID, msg.Document.FileName, msg.Document.MimeType); err == nil {
			attachments = append(attachments, a)
		} else {
			slog.Warn("telegram: document download failed", "err", err)
		}
	}

	if strings.TrimSpace(content) == "" && len(attachments) == 0 {
		return
	}

	in := bus.NewAgentBusMessage(bus.ChannelTelegram, senderID, chatID, content, "")
	in.SetAttachments(attachments)
	in.SetLanguage(t.language(msg.From))
	in.SetMetadata(map[string]any{
		"message_id": msg.MessageID,
		"username":   msg.From.UserName,
		"is_group":   msg.Chat.Type != "private",
	})

	if t.HandleMessage(ctx, in) {
		t.startTyping(ctx, msg.Chat.ID)
	}
}

// language prefers the configured reply language, then the user's client
// language.
func (t *TelegramChannel) language(from *tgbotapi.User) schema.Language {
	if t.cfg.Language != "" {
		return schema.ParseLanguage(t.cfg.Language)
	}
	if from != nil && from.LanguageCode != "" {
		return schema.ParseLanguage(from.LanguageCode)
	}
	return ""
}

func (t *TelegramChannel) download(ctx context.Context, fileID, name, mimeType string) (schema.Attachment, error) {
	if t.bot == nil {
		return schema.Attachment{}, fmt.Errorf("bot not running")
	}
	file, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return schema.Attachment{}, err
	}
	if name == "" {
		name = filepath.Base(file.FilePath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(t.cfg.Token), nil)
	if err != nil {
		return schema.Attachment{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return schema.Attachment{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return schema.Attachment{}, fmt.Errorf("download %s: status %d", name, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, telegramMaxDownload))
	if err != nil {
		return schema.Attachment{}, err
	}
	return schema.Attachment{Name: name, MimeType: mimeType, Data: data}, nil
}

// startTyping shows the typing indicator until the reply for chatID is sent.
func (t *TelegramChannel) startTyping(ctx context.Context, chatID int64) {
	t.mu.Lock()
	if cancel, ok := t.typing[chatID]; ok {
		cancel()
	}
	typingCtx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	t.typing[chatID] = cancel
	t.mu.Unlock()

	go t.sendTypingLoop(typingCtx, chatID)
}

func (t *TelegramChannel) stopTyping(chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cancel, ok := t.typing[chatID]; ok {
		cancel()
		delete(t.typing, chatID)
	}
}

func (t *TelegramChannel) stopAllTyping() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, cancel := range t.typing {
		cancel()
		delete(t.typing, id)
	}
}

func (t *TelegramChannel) sendTypingLoop(ctx context.Context, chatID int64) {
	for {
		if t.bot != nil {
			action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
			_, _ = t.bot.Request(action)
		}
		select {
		case <-time.After(4 * time.Second):
		case <-ctx.Done():
			return
		}
	}
}

// Send delivers the final reply. Streamed chunks are ignored; Telegram gets
// the whole text once the turn completes.
func (t *TelegramChannel) Send(_ context.Context, msg bus.ChannelMessage) error {
	if !msg.Final() {
		return nil
	}
	if t.bot == nil {
		return fmt.Errorf("telegram: bot not running")
	}
	chatID, err := strconv.ParseInt(msg.ChatId(), 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat_id %q", msg.ChatId())
	}
	t.stopTyping(chatID)

	if strings.TrimSpace(msg.Content()) == "" {
		return nil
	}

	var replyMsgID int
	switch v := msg.Metadata()["message_id"].(type) {
	case int:
		replyMsgID = v
	case float64:
		replyMsgID = int(v)
	}

	for _, chunk := range splitMessage(msg.Content(), telegramMaxMessage) {
		m := tgbotapi.NewMessage(chatID, markdownToTelegramHTML(chunk))
		m.ParseMode = tgbotapi.ModeHTML
		m.ReplyToMessageID = replyMsgID
		if _, err := t.bot.Send(m); err != nil {
			// Fallback to plain text.
			plain := tgbotapi.NewMessage(chatID, chunk)
			plain.ReplyToMessageID = replyMsgID
			if _, err := t.bot.Send(plain); err != nil {
				return fmt.Errorf("telegram: send: %w", err)
			}
		}
		replyMsgID = 0
	}
	return nil
}

// ---------------------------------------------------------------------------
// Markdown → Telegram HTML
// ---------------------------------------------------------------------------

var (
	reTGCodeBlock  = regexp.MustCompile("(?s)```[\\w]*\\n?(.*?)```")
	reTGInlineCode = regexp.MustCompile("`([^`]+)`")
	reTGHeader     = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	reTGLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	reTGBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reTGStrike     = regexp.MustCompile(`~~(.+?)~~`)
	reTGBullet     = regexp.MustCompile(`(?m)^[-*]\s+`)
)

// markdownToTelegramHTML converts the subset of Markdown models usually
// emit into Telegram's HTML parse mode. Code is extracted first so its
// contents are escaped but not formatted.
func markdownToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	var codeBlocks []string
	text = reTGCodeBlock.ReplaceAllStringFunc(text, func(m string) string {
		codeBlocks = append(codeBlocks, reTGCodeBlock.FindStringSubmatch(m)[1])
		return fmt.Sprintf("\x00CB%d\x00", len(codeBlocks)-1)
	})

	var inlineCodes []string
	text = reTGInlineCode.ReplaceAllStringFunc(text, func(m string) string {
		inlineCodes = append(inlineCodes, reTGInlineCode.FindStringSubmatch(m)[1])
		return fmt.Sprintf("\x00IC%d\x00", len(inlineCodes)-1)
	})

	text = reTGHeader.ReplaceAllString(text, "**$1**")
	text = htmlEscape(text)
	text = reTGLink.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = reTGBold.ReplaceAllString(text, "<b>$1</b>")
	text = reTGStrike.ReplaceAllString(text, "<s>$1</s>")
	text = reTGBullet.ReplaceAllString(text, "• ")

	for i, code := range inlineCodes {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00IC%d\x00", i), "<code>"+htmlEscape(code)+"</code>")
	}
	for i, code := range codeBlocks {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00CB%d\x00", i), "<pre><code>"+htmlEscape(code)+"</code></pre>")
	}
	return text
}

func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
