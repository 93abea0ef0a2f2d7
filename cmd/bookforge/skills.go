package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bookforge/bookforge/pkg/config"
	"github.com/bookforge/bookforge/pkg/presenter"
	"github.com/bookforge/bookforge/pkg/skills"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List produced skill packages",
	Long:  `List every valid skill package under the output directory with its activation description.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			presenter.Error(err, "invalid configuration")
			os.Exit(ExitUsageError)
		}

		discovery := skills.NewDiscovery(cfg.OutputPath())
		discovered, err := discovery.DiscoverSkills()
		if err != nil {
			presenter.Error(err, "failed to read output directory")
			os.Exit(ExitFailed)
		}

		if len(discovered) == 0 {
			presenter.Info("No skill packages found.")
			return
		}

		names, err := discovery.ListSkillNames()
		if err != nil {
			presenter.Error(err, "failed to list skills")
			os.Exit(ExitFailed)
		}

		presenter.Section(fmt.Sprintf("Skill Packages (%d)", len(names)))
		for _, name := range names {
			skill := discovered[name]
			presenter.Info(fmt.Sprintf("%s\t%s", name, skill.Description))
		}
	},
}
