package sysprompt

import (
	"time"

	"github.com/bookforge/bookforge/pkg/config"
)

// PromptContext holds all variables for template rendering
type PromptContext struct {
	WorkspaceRoot string
	LibraryDir    string
	OutputDir     string
	Date          string

	ToolNames map[string]string

	SkillFileName string
}

// NewPromptContext creates a PromptContext from the session configuration.
// Directory names are workspace-relative; the model only ever sees relative
// paths.
func NewPromptContext(cfg *config.Config) *PromptContext {
	return &PromptContext{
		WorkspaceRoot: cfg.WorkspaceRoot,
		LibraryDir:    cfg.LibraryDir,
		OutputDir:     cfg.OutputDir,
		Date:          time.Now().Format("2006-01-02"),
		ToolNames: map[string]string{
			"read":   ReadFileTool,
			"write":  WriteFileTool,
			"list":   ListDirectoryTool,
			"search": SearchTextTool,
			"finish": FinishTaskTool,
		},
		SkillFileName: SkillFileName,
	}
}
