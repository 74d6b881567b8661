package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/slot-watcher/internal/usecase"
	"github.com/user/slot-watcher/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and list the classified sources",
	Long: `Load the configuration, classify every source URL and print the result
without polling anything.

Exit codes:
  0 - configuration is valid
  1 - configuration is invalid (details on stderr)`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	sources, err := usecase.ClassifySources(cfg.Locators())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:            %d\n", cfg.Port)
	fmt.Fprintf(out, "  Regular delay:   %s\n", cfg.RegularDelay())
	fmt.Fprintf(out, "  Error delay:     %s\n", cfg.ErrorDelay())
	fmt.Fprintf(out, "  Error threshold: %d\n", cfg.ErrorThreshold)
	fmt.Fprintf(out, "  Pushover:        %s\n", enabled(cfg.PushoverEnabled()))
	fmt.Fprintf(out, "  Redis:           %s\n", enabled(cfg.RedisAddr != ""))
	fmt.Fprintf(out, "  Postgres:        %s\n", enabled(cfg.PostgresURL != ""))
	fmt.Fprintf(out, "  Sources:         %d\n", len(sources))
	for _, src := range sources {
		fmt.Fprintf(out, "    %-8s %-8s %s\n", src.ID, src.Kind, src.Locator)
	}
	return nil
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
