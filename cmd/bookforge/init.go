package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bookforge/bookforge/pkg/config"
	"github.com/bookforge/bookforge/pkg/presenter"
	"github.com/bookforge/bookforge/pkg/skills"
)

var initCmd = &cobra.Command{
	Use:   "init [skill-name]",
	Short: "Set up a bookforge workspace",
	Long: `Set up a bookforge workspace: create the library and output directories and,
when a skill name is given, scaffold a template skill package to fill in.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			presenter.Error(err, "invalid configuration")
			os.Exit(ExitUsageError)
		}

		presenter.Section("Workspace Setup")

		if os.Getenv("ANTHROPIC_API_KEY") == "" && os.Getenv("OPENAI_API_KEY") == "" {
			presenter.Warning("Neither ANTHROPIC_API_KEY nor OPENAI_API_KEY is set; `bookforge run` will need one")
		}

		for _, dir := range []string{cfg.LibraryPath(), cfg.OutputPath()} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				presenter.Error(err, fmt.Sprintf("failed to create %s", dir))
				os.Exit(ExitUsageError)
			}
			presenter.Success(fmt.Sprintf("Created %s", dir))
		}

		configDir := filepath.Join(os.Getenv("HOME"), ".bookforge")
		configPath := filepath.Join(configDir, "config.yaml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := os.MkdirAll(configDir, 0o755); err == nil {
				if err := viper.WriteConfigAs(configPath); err == nil {
					presenter.Success(fmt.Sprintf("Wrote default configuration to %s", configPath))
				}
			}
		}

		if len(args) == 1 {
			name := args[0]
			if err := skills.Scaffold(cfg.OutputPath(), name); err != nil {
				presenter.Error(err, "failed to scaffold skill")
				os.Exit(ExitUsageError)
			}
			presenter.Success(fmt.Sprintf("Scaffolded skill package %s", name))
		}

		presenter.Separator()
		presenter.Info(fmt.Sprintf("Drop source documents into %s/ and run `bookforge run`.", cfg.LibraryDir))
	},
}
