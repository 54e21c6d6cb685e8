package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pandaai/panda/internal/providers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show panda status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	fmt.Printf("%s panda Status\n\n", logo)
	fmt.Printf("Config:    %s %s\n", cfgPath, yesNo(exists(cfgPath)))

	cfg, err := loadConfigUnchecked()
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	sessions := cfg.SessionsPath()
	fmt.Printf("Sessions:  %s %s\n", sessions, yesNo(exists(sessions)))

	provider := "(unknown)"
	if spec := cfg.ResolveProvider(); spec != nil {
		provider = spec.Label()
	}
	fmt.Printf("Provider:  %s\n", provider)
	fmt.Printf("API key:   %s\n", cfg.KeyFingerprint())
	fmt.Printf("Model:     %s\n", orDefault(cfg.EffectiveModel(), "(not set)"))
	fmt.Printf("Fallback:  %s\n", orDefault(cfg.FallbackModel(), "(not set)"))
	fmt.Printf("Language:  %s\n", cfg.Language().Name())
	fmt.Printf("Streaming: %s\n", yesNo(cfg.Chat.Stream))
	fmt.Printf("Mock mode: %s\n", yesNo(cfg.Mock.Enabled))
	fmt.Printf("Docs:      %s\n", cfg.Docs.BaseURL)

	if err := cfg.Validate(); err != nil {
		fmt.Printf("\n  ✗ %v\n", err)
	}

	fmt.Println("\nKnown providers:")
	for _, spec := range providers.PROVIDERS {
		fmt.Printf("  %-12s %s\n", spec.Label(), orDefault(spec.DefaultModel, "-"))
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
