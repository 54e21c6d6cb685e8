package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pandaai/panda/internal/dependency"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"gateway"},
	Short:   "Serve Panda AI on the configured channels",
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Gateway port (default from config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Gateway.Port = servePort
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	enabled := container.ChannelManager().EnabledChannels()
	if len(enabled) == 0 {
		return errors.New("no channels enabled; enable one under channels in the config")
	}

	fmt.Printf("%s Serving on %s (%s:%d)\n", logo, strings.Join(enabled, ", "), cfg.Gateway.Host, cfg.Gateway.Port)
	if container.Client().MockEnabled() {
		fmt.Println("  (mock mode: replies are canned, no API calls are made)")
	}
	if ret := container.Retention(); ret.Enabled() {
		fmt.Printf("  sessions older than %d days are pruned (%s)\n", cfg.Sessions.RetentionDays, cfg.Sessions.PruneSchedule)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.AgentLoop().Run(gctx) })
	g.Go(func() error { return container.ChannelManager().StartAll(gctx) })
	g.Go(func() error { return container.Retention().Start(gctx) })

	err = g.Wait()
	slog.Info("panda stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
