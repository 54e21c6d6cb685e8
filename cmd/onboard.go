package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pandaai/panda/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and the sessions directory",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	var cfg *config.Config
	if exists(cfgPath) {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, err := config.Load(cfgPath)
		if err != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		cfg = existing
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		def := config.DefaultConfig()
		cfg = &def
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	sessions := cfg.SessionsPath()
	if err := os.MkdirAll(sessions, 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}
	fmt.Printf("✓ Sessions at %s\n", sessions)

	fmt.Printf("\n%s panda is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add your API key to %s (or set API_KEY in .env)\n", cfgPath)
	fmt.Println("     Get one at: https://openrouter.ai/keys")
	fmt.Println("  2. Chat: panda chat -m \"Explain photosynthesis\"")
	fmt.Println("  3. Serve the browser and bot channels: panda serve")
	return nil
}
