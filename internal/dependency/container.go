// Package dependency wires core panda services using go.uber.org/dig.
package dependency

import (
	"fmt"
	"time"

	"go.uber.org/dig"

	"github.com/pandaai/panda/internal/agent"
	"github.com/pandaai/panda/internal/bus"
	"github.com/pandaai/panda/internal/channels"
	"github.com/pandaai/panda/internal/chat"
	"github.com/pandaai/panda/internal/config"
	"github.com/pandaai/panda/internal/docs"
	"github.com/pandaai/panda/internal/prompt"
	"github.com/pandaai/panda/internal/providers"
	"github.com/pandaai/panda/internal/retention"
	"github.com/pandaai/panda/internal/schema"
	"github.com/pandaai/panda/internal/session"
)

const busSize = 100

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg       *config.Config
	engine    *providers.Engine
	client    *chat.Client
	builder   *prompt.Builder
	sessions  *session.Manager
	turns     *chat.TurnService
	docs      *docs.Client
	retention *retention.Service
	loop      *agent.AgentLoop
	channels  *channels.Manager
}

func (c *Container) Config() *config.Config            { return c.cfg }
func (c *Container) Engine() *providers.Engine         { return c.engine }
func (c *Container) Client() *chat.Client              { return c.client }
func (c *Container) Builder() *prompt.Builder          { return c.builder }
func (c *Container) Sessions() *session.Manager        { return c.sessions }
func (c *Container) Turns() *chat.TurnService          { return c.turns }
func (c *Container) Docs() *docs.Client                { return c.docs }
func (c *Container) Retention() *retention.Service     { return c.retention }
func (c *Container) AgentLoop() *agent.AgentLoop       { return c.loop }
func (c *Container) ChannelManager() *channels.Manager { return c.channels }

// ChatModel is a named string type so dig can distinguish the model a turn
// targets from plain strings.
type ChatModel string

// New builds and wires all core services from cfg. cfg must already be
// validated.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	ctors := []any{
		func() *config.Config { return cfg },
		newEngine,
		newClient,
		newBuilder,
		newSessionManager,
		resolveChatModel,
		newTurnService,
		newDocsClient,
		newRetention,
		func() *bus.AgentBus { return bus.NewAgentBus(busSize) },
		func() *bus.ChannelBus { return bus.NewChannelBus(busSize) },
		newAgentLoop,
		channels.NewManager,
	}
	for _, p := range ctors {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		engine *providers.Engine,
		client *chat.Client,
		builder *prompt.Builder,
		sessions *session.Manager,
		turns *chat.TurnService,
		docsClient *docs.Client,
		ret *retention.Service,
		loop *agent.AgentLoop,
		chanMgr *channels.Manager,
	) {
		result = &Container{
			cfg:       cfg,
			engine:    engine,
			client:    client,
			builder:   builder,
			sessions:  sessions,
			turns:     turns,
			docs:      docsClient,
			retention: ret,
			loop:      loop,
			channels:  chanMgr,
		}
	})
	return result, err
}

func newEngine(cfg *config.Config) (*providers.Engine, error) {
	spec := cfg.ResolveProvider()
	if spec == nil {
		return nil, schema.NewError(schema.ErrConfiguration, "unknown provider %q", cfg.Provider.Name)
	}
	return providers.NewEngine(providers.Params{
		Spec:              *spec,
		APIKey:            cfg.Provider.APIKey,
		APIBase:           cfg.Provider.APIBase,
		ExtraHeaders:      cfg.Provider.ExtraHeaders,
		ExtraBody:         cfg.Provider.ExtraBody,
		MaxRetries:        cfg.Provider.MaxRetries,
		RequestsPerMinute: cfg.Provider.RequestsPerMinute,
		Timeout:           time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
	}), nil
}

func newClient(cfg *config.Config, engine *providers.Engine) *chat.Client {
	return chat.NewClient(engine, chat.Options{
		DefaultModel: cfg.FallbackModel(),
		Stream:       cfg.Chat.Stream,
		Mock: chat.MockOptions{
			Enabled:  cfg.Mock.Enabled,
			Delay:    time.Duration(cfg.Mock.DelayMs) * time.Millisecond,
			Response: cfg.Mock.Response,
		},
	})
}

func newBuilder(cfg *config.Config) *prompt.Builder {
	return prompt.NewBuilder(prompt.Options{
		HistoryWindow: cfg.Chat.HistoryWindow,
		Temperature:   cfg.Chat.Temperature,
		TopP:          cfg.Chat.TopP,
		MaxTokens:     cfg.Chat.MaxTokens,
		MaxImageBytes: cfg.Chat.MaxImageBytes,
	}, nil)
}

func newSessionManager(cfg *config.Config) (*session.Manager, error) {
	m, err := session.NewManager(cfg.SessionsPath())
	if err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}
	return m, nil
}

func resolveChatModel(cfg *config.Config) ChatModel {
	return ChatModel(cfg.EffectiveModel())
}

func newTurnService(
	cfg *config.Config,
	sessions *session.Manager,
	builder *prompt.Builder,
	client *chat.Client,
	model ChatModel,
) *chat.TurnService {
	return chat.NewTurnService(sessions, builder, client, string(model), cfg.Language())
}

func newDocsClient(cfg *config.Config) *docs.Client {
	return docs.NewClient(docs.Options{
		BaseURL:        cfg.Docs.BaseURL,
		MaxUploadBytes: cfg.Docs.MaxUploadBytes,
		Timeout:        time.Duration(cfg.Docs.TimeoutSeconds) * time.Second,
	})
}

func newRetention(cfg *config.Config, sessions *session.Manager, turns *chat.TurnService) (*retention.Service, error) {
	maxAge := time.Duration(cfg.Sessions.RetentionDays) * 24 * time.Hour
	return retention.NewService(sessions, maxAge, cfg.Sessions.PruneSchedule, turns.Busy)
}

func newAgentLoop(cfg *config.Config, inbound *bus.AgentBus, outbound *bus.ChannelBus, turns *chat.TurnService) *agent.AgentLoop {
	return agent.NewAgentLoop(inbound, outbound, turns, cfg.Language())
}
