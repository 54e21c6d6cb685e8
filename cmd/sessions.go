package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pandaai/panda/internal/dependency"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored conversations",
}

var pruneDays int

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsDeleteCmd, sessionsPruneCmd)
	sessionsPruneCmd.Flags().IntVar(&pruneDays, "days", 0, "Delete sessions idle for this many days (default from config)")
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, most recent first",
	RunE: func(_ *cobra.Command, _ []string) error {
		container, err := newOfflineContainer()
		if err != nil {
			return err
		}
		infos := container.Sessions().List()
		if len(infos) == 0 {
			fmt.Println("No sessions.")
			return nil
		}
		fmt.Printf("%-28s %-17s %s\n", "Key", "Updated", "Title")
		fmt.Println(strings.Repeat("-", 72))
		for _, info := range infos {
			fmt.Printf("%-28s %-17s %s\n", info.Key, info.UpdatedAt.Local().Format("2006-01-02 15:04"), info.Title)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <key>...",
	Short: "Delete stored sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		container, err := newOfflineContainer()
		if err != nil {
			return err
		}
		for _, key := range args {
			if err := container.Sessions().Delete(key); err != nil {
				return err
			}
			fmt.Printf("✓ deleted %s\n", key)
		}
		return nil
	},
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete sessions that have been idle too long",
	RunE: func(_ *cobra.Command, _ []string) error {
		container, err := newOfflineContainer()
		if err != nil {
			return err
		}
		if pruneDays > 0 {
			cutoff := time.Now().Add(-time.Duration(pruneDays) * 24 * time.Hour)
			n, err := container.Sessions().Prune(cutoff, nil)
			if err != nil {
				return err
			}
			fmt.Printf("✓ pruned %d session(s)\n", n)
			return nil
		}
		ret := container.Retention()
		if !ret.Enabled() {
			return fmt.Errorf("retention is disabled; pass --days or set sessions.retentionDays")
		}
		n, err := ret.RunOnce()
		if err != nil {
			return err
		}
		fmt.Printf("✓ pruned %d session(s)\n", n)
		return nil
	},
}

// newOfflineContainer builds the service graph for commands that never call
// the provider, so a missing API key is not an error.
func newOfflineContainer() (*dependency.Container, error) {
	cfg, err := loadConfigUnchecked()
	if err != nil {
		return nil, err
	}
	cfg.Mock.Enabled = true
	return dependency.New(cfg)
}
