package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
)

const (
	// MaxSearchResults limits the number of matches returned by one search.
	MaxSearchResults = 100

	// MaxLineLength limits matched lines so long lines do not flood the
	// model's context.
	MaxLineLength = 300

	// DefaultContextLines is the number of surrounding lines shown per match.
	DefaultContextLines = 2
)

// SearchTextTool searches a single workspace file for a literal string or a
// regular expression.
type SearchTextTool struct{}

// SearchTextInput defines the input parameters for the search_text tool
type SearchTextInput struct {
	Path    string `json:"path" jsonschema:"description=The path of the file to search relative to the workspace root,required"`
	Pattern string `json:"pattern" jsonschema:"description=The text or regular expression to search for,required"`
	Literal bool   `json:"literal" jsonschema:"description=Treat the pattern as a literal string rather than a regular expression,default=false"`
	Context int    `json:"context" jsonschema:"description=Number of context lines to show around each match,default=2"`
}

func (t *SearchTextTool) Name() string {
	return "search_text"
}

func (t *SearchTextTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[SearchTextInput]()
}

func (t *SearchTextTool) Description() string {
	return `Searches a file for a pattern and returns matching lines with line numbers and surrounding context.

This tool takes four parameters:
- path: The path of the file to search, relative to the workspace root
- pattern: The text to search for; a Go regular expression unless literal is true
- literal: Treat the pattern as a literal substring (default: false)
- context: Number of context lines around each match (default: 2)

Matching lines are marked with ":" and context lines with "-", e.g.

 12- preceding line
 13: matching line
 14- following line
`
}

func (t *SearchTextTool) ValidateInput(state tooltypes.State, parameters string) error {
	var input SearchTextInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if input.Path == "" {
		return errors.New("path is required")
	}
	if input.Pattern == "" {
		return errors.New("pattern is required")
	}
	if input.Context < 0 {
		return errors.New("context must be a non-negative integer")
	}
	if !input.Literal {
		if _, err := regexp.Compile(input.Pattern); err != nil {
			return errors.Wrapf(err, "invalid regular expression %q", input.Pattern)
		}
	}

	return nil
}

func (t *SearchTextTool) Execute(ctx context.Context, state tooltypes.State, parameters string) tooltypes.ToolResult {
	input := SearchTextInput{Context: DefaultContextLines}
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return tooltypes.ToolResult{Error: err.Error()}
	}

	path, err := state.ResolvePath(input.Path)
	if err != nil {
		return tooltypes.ToolResult{Error: err.Error()}
	}

	match := func(line string) bool { return strings.Contains(line, input.Pattern) }
	if !input.Literal {
		re, err := regexp.Compile(input.Pattern)
		if err != nil {
			return tooltypes.ToolResult{Error: err.Error()}
		}
		match = re.MatchString
	}

	file, err := os.Open(path)
	if err != nil {
		return tooltypes.ToolResult{Error: fmt.Sprintf("failed to open file: %s", err.Error())}
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxOutputBytes)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return tooltypes.ToolResult{Error: fmt.Sprintf("error reading file: %s", err.Error())}
	}

	var matched []int
	for i, line := range lines {
		if match(line) {
			matched = append(matched, i)
			if len(matched) >= MaxSearchResults {
				break
			}
		}
	}

	if len(matched) == 0 {
		return tooltypes.ToolResult{Result: fmt.Sprintf("no matches for pattern %q in %s", input.Pattern, input.Path)}
	}

	result := renderMatches(input, lines, matched)
	return tooltypes.ToolResult{Result: result}
}

// renderMatches formats matches with context lines, merging overlapping
// windows so a line is printed at most once.
func renderMatches(input SearchTextInput, lines []string, matched []int) string {
	matchSet := make(map[int]bool, len(matched))
	include := make(map[int]bool)
	for _, idx := range matched {
		matchSet[idx] = true
		for i := idx - input.Context; i <= idx+input.Context; i++ {
			if i >= 0 && i < len(lines) {
				include[i] = true
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d match(es) for pattern %q in %s:\n", len(matched), input.Pattern, input.Path))

	prev := -2
	for i := 0; i < len(lines); i++ {
		if !include[i] {
			continue
		}
		if i != prev+1 && prev >= 0 {
			sb.WriteString("--\n")
		}
		prev = i

		line := lines[i]
		if len(line) > MaxLineLength {
			line = line[:MaxLineLength] + "... [truncated]"
		}
		sep := "-"
		if matchSet[i] {
			sep = ":"
		}
		sb.WriteString(fmt.Sprintf("%3d%s %s\n", i, sep, line))
	}

	if len(matched) >= MaxSearchResults {
		sb.WriteString(fmt.Sprintf("... [stopped after %d matches]\n", MaxSearchResults))
	}

	return sb.String()
}
