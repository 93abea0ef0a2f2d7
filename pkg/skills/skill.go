// Package skills models the output unit of a bookforge run: a skill package
// is a directory containing a SKILL.md manifest with YAML frontmatter plus
// any number of guidance documents. This package serializes, discovers, and
// validates those packages; it never decides their semantic content.
package skills

// Skill represents one produced skill package
type Skill struct {
	Name        string // Unique name from frontmatter
	Description string // Brief activation guidance for the consuming agent
	Directory   string // Full path to the skill directory
	Content     string // Body of SKILL.md, without frontmatter
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}
