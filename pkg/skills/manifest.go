package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const skillFileName = "SKILL.md"

// Render serializes a skill into SKILL.md form: YAML frontmatter followed by
// the guidance body.
func Render(skill *Skill) (string, error) {
	if skill.Name == "" {
		return "", errors.New("skill name is required")
	}
	if skill.Description == "" {
		return "", errors.New("skill description is required")
	}

	meta, err := yaml.Marshal(Metadata{Name: skill.Name, Description: skill.Description})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal frontmatter")
	}

	body := strings.TrimLeft(skill.Content, "\n")
	return fmt.Sprintf("---\n%s---\n\n%s", meta, body), nil
}

// Write materializes a skill package under dir, creating the skill directory
// and its SKILL.md manifest.
func Write(dir string, skill *Skill) error {
	rendered, err := Render(skill)
	if err != nil {
		return err
	}

	skillDir := filepath.Join(dir, skill.Name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create skill directory")
	}

	path := filepath.Join(skillDir, skillFileName)
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return errors.Wrap(err, "failed to write skill manifest")
	}

	return nil
}

// Scaffold writes a template skill package a human can fill in, used by
// `bookforge init` to seed a fresh workspace.
func Scaffold(dir, name string) error {
	return Write(dir, &Skill{
		Name:        name,
		Description: "Describe when the consuming agent should activate this skill",
		Content: `# ` + name + `

## Overview

Explain what this skill teaches and where it applies.

## Guidance

Step-by-step instructions distilled from the source material.
`,
	})
}
