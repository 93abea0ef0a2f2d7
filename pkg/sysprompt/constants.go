package sysprompt

import "embed"

//go:embed templates/*
var TemplateFS embed.FS

const (
	ProductName = "bookforge"

	ReadFileTool      = "read_file"
	WriteFileTool     = "write_file"
	ListDirectoryTool = "list_directory"
	SearchTextTool    = "search_text"
	FinishTaskTool    = "finish_task"

	SkillFileName = "SKILL.md"

	// Template path for the session system prompt
	SystemTemplate = "templates/system.tmpl"
)
