package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FolkodeGroup/mediapp/pkg/config"
)

func newConfigCommand(current func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the client configuration file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a := current()
				a.printf("file:         %s\n", a.cfgPath)
				a.printf("api_base_url: %s\n", a.cfg.APIBaseURL)
				a.printf("storage:      %s\n", a.cfg.Storage)
				a.printf("storage_path: %s\n", a.cfg.StoragePath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Persist a setting (api_base_url, storage, storage_path)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				a := current()
				if a.cfgPath == "" {
					return errors.New("no config file location: pass --config")
				}
				// Flags and env only apply to this run, so edit the file as stored.
				cfg, err := config.ReadCLIConfigFile(a.cfgPath)
				if err != nil {
					return err
				}
				if err := setConfigKey(&cfg, args[0], args[1]); err != nil {
					return err
				}
				if err := config.SaveCLIConfig(a.cfgPath, cfg); err != nil {
					return fmt.Errorf("write %s: %w", a.cfgPath, err)
				}
				a.println(successStyle.Render(fmt.Sprintf("%s = %s", args[0], args[1])))
				return nil
			},
		},
	)
	return cmd
}

func setConfigKey(cfg *config.CLIConfig, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "api_base_url":
		if value == "" {
			return errors.New("api_base_url cannot be empty")
		}
		cfg.APIBaseURL = value
	case "storage":
		switch v := strings.ToLower(value); v {
		case config.StorageFile, config.StorageSQLite, config.StorageMemory:
			cfg.Storage = v
		default:
			return fmt.Errorf("unknown storage backend %q (want file, sqlite or memory)", value)
		}
	case "storage_path":
		cfg.StoragePath = value
	default:
		return fmt.Errorf("unknown config key %q (want api_base_url, storage or storage_path)", key)
	}
	return nil
}
