package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pandaai/panda/internal/bus"
	"github.com/pandaai/panda/internal/config/channel"
	"github.com/pandaai/panda/internal/schema"
)

const (
	wsMaxFrame     = 16 << 20 // attachments travel base64-encoded inside frames
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsMinToken     = 16
)

// wsClientSpace namespaces the conversation owners derived from client tokens.
var wsClientSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("panda:websocket"))

// wsInbound is a frame sent by the browser.
type wsInbound struct {
	Type        string         `json:"type"` // "message" | "reset"
	ChatID      string         `json:"chatId"`
	Text        string         `json:"text"`
	Language    string         `json:"language,omitempty"`
	Model       string         `json:"model,omitempty"`
	Attachments []wsAttachment `json:"attachments,omitempty"`
}

type wsAttachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	DataURL  string `json:"dataUrl"`
}

// wsOutbound is a frame sent to the browser.
type wsOutbound struct {
	Type      string `json:"type"` // "ready" | "chunk" | "done" | "error"
	ChatID    string `json:"chatId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Text      string `json:"text,omitempty"`
	Token     string `json:"token,omitempty"` // ready only
}

// clientOwner resolves the ?token= query parameter to the owner that scopes
// a browser's conversations. Missing or short tokens get a fresh one, which
// the browser keeps to find its chats again after reconnecting.
func clientOwner(r *http.Request) (token, owner string) {
	token = strings.TrimSpace(r.URL.Query().Get("token"))
	if len(token) < wsMinToken {
		token = uuid.NewString()
	}
	return token, uuid.NewSHA1(wsClientSpace, []byte(token)).String()
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla connections allow one concurrent writer
}

func (c *wsConn) write(frame wsOutbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(frame)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// WebSocketChannel serves the browser chat UI. Every reply fragment is
// pushed to the browser as its own frame.
type WebSocketChannel struct {
	Base
	cfg      *channel.WebSocketConfig
	addr     string
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*wsConn
}

// NewWebSocketChannel creates a WebSocketChannel listening on addr.
func NewWebSocketChannel(cfg *channel.WebSocketConfig, addr string, inbound *bus.AgentBus) *WebSocketChannel {
	w := &WebSocketChannel{
		Base:  NewBase(bus.ChannelWebSocket, inbound, nil),
		cfg:   cfg,
		addr:  addr,
		conns: make(map[string]*wsConn),
	}
	w.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     w.checkOrigin,
	}
	return w
}

func (w *WebSocketChannel) Name() bus.Channel { return bus.ChannelWebSocket }

// Handler returns the HTTP handler serving the socket endpoint and a
// health check.
func (w *WebSocketChannel) Handler(ctx context.Context) http.Handler {
	path := w.cfg.Path
	if path == "" {
		path = "/ws"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(rw http.ResponseWriter, r *http.Request) {
		w.serve(ctx, rw, r)
	})
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Start listens on the configured address until ctx is cancelled.
func (w *WebSocketChannel) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              w.addr,
		Handler:           w.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("websocket: listening", "addr", w.addr, "path", w.cfg.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("websocket: serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		w.closeAll()
		return ctx.Err()
	}
}

func (w *WebSocketChannel) serve(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		slog.Warn("websocket: upgrade failed", "err", err)
		return
	}
	conn.SetReadLimit(wsMaxFrame)

	id := uuid.NewString()
	token, owner := clientOwner(r)
	c := &wsConn{conn: conn}
	w.mu.Lock()
	w.conns[id] = c
	w.mu.Unlock()
	slog.Info("websocket: client connected", "conn", id, "remote", r.RemoteAddr)

	connCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		w.mu.Lock()
		delete(w.conns, id)
		w.mu.Unlock()
		_ = conn.Close()
		slog.Info("websocket: client disconnected", "conn", id)
	}()

	go w.keepAlive(connCtx, c)
	_ = c.write(wsOutbound{Type: "ready", ChatID: id, Token: token})

	for {
		var frame wsInbound
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket: read ended", "conn", id, "err", err)
			}
			return
		}
		if err := w.handleFrame(connCtx, id, owner, frame); err != nil {
			_ = c.write(wsOutbound{Type: "error", ChatID: frame.ChatID, Text: err.Error()})
		}
	}
}

func (w *WebSocketChannel) keepAlive(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleFrame turns a browser frame into a bus message. The bus chat ID is
// the connection, so replies find their socket. The browser's chatId picks
// the conversation among those owned by its token.
func (w *WebSocketChannel) handleFrame(ctx context.Context, connID, owner string, frame wsInbound) error {
	chatID := strings.TrimSpace(frame.ChatID)
	if chatID == "" {
		chatID = connID
	}

	content := frame.Text
	switch frame.Type {
	case "reset":
		content = "/new"
	case "message", "":
	default:
		return fmt.Errorf("unknown frame type %q", frame.Type)
	}

	var attachments []schema.Attachment
	for _, a := range frame.Attachments {
		att, err := schema.AttachmentFromDataURL(a.Name, a.MimeType, a.DataURL)
		if err != nil {
			return err
		}
		attachments = append(attachments, att)
	}

	msg := bus.NewAgentBusMessage(bus.ChannelWebSocket, connID, connID, content, bus.RoutingKey(bus.ChannelWebSocket, owner, chatID))
	msg.SetAttachments(attachments)
	msg.SetStream(true)
	msg.SetModel(strings.TrimSpace(frame.Model))
	if frame.Language != "" {
		msg.SetLanguage(schema.ParseLanguage(frame.Language))
	}
	msg.SetMetadata(map[string]any{"chat_id": chatID})

	w.HandleMessage(ctx, msg)
	return nil
}

// Send writes msg to the connection it came from as a chunk, done or error
// frame.
func (w *WebSocketChannel) Send(_ context.Context, msg bus.ChannelMessage) error {
	w.mu.RLock()
	c, ok := w.conns[msg.ChatId()]
	w.mu.RUnlock()
	if !ok {
		return nil // browser went away
	}
	chatID, _ := msg.Metadata()["chat_id"].(string)
	return c.write(wsOutbound{
		Type:      string(msg.Kind()),
		ChatID:    chatID,
		MessageID: msg.MessageId(),
		Text:      msg.Content(),
	})
}

// checkOrigin allows same-origin requests and the configured origins.
// "*" allows any origin.
func (w *WebSocketChannel) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range w.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

func (w *WebSocketChannel) closeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, c := range w.conns {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		_ = c.conn.Close()
		delete(w.conns, id)
	}
}
