package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vidrag/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings stored in ~/.vidrag/config.toml.

Environment variables (OPENAI_API_KEY, DATABASE_URL, VIDRAG_BACKEND, ...)
override the file; "settings show" reports where each value comes from.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Validates the value against the setting's type and saves it to the config file.

Examples:
  vidrag settings set storage.backend qdrant
  vidrag settings set retrieval.match_threshold 0.6`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a setting from the config file",
	Long:  `Removes the key from the config file so the default (or environment) value applies again.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := deps.SettingsService()
	if err != nil {
		return err
	}
	values, err := svc.Values()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	if path := svc.ConfigPath(); path != "" {
		cmd.Printf("Config file: %s\n", path)
	}

	section := ""
	for _, v := range values {
		group, _, _ := strings.Cut(v.Key, ".")
		if group != section {
			section = group
			cmd.Println()
			cmd.Printf("[%s]\n", section)
		}
		cmd.Printf("  %-28s %s (%s)\n", v.Key, displayValue(v), v.Source)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := deps.SettingsService()
	if err != nil {
		return err
	}
	if err := svc.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("Set %s\n", args[0])
	return nil
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	svc, err := deps.SettingsService()
	if err != nil {
		return err
	}
	if err := svc.Unset(args[0]); err != nil {
		return err
	}
	cmd.Printf("Unset %s\n", args[0])
	return nil
}

func displayValue(v domain.SettingValue) string {
	switch {
	case v.Value == "":
		return "(not set)"
	case v.Secret:
		return maskAPIKey(v.Value)
	default:
		return v.Value
	}
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
