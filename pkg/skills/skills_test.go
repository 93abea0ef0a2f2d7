package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Run("frontmatter plus body", func(t *testing.T) {
		rendered, err := Render(&Skill{
			Name:        "pairs-trading",
			Description: "Use when analyzing cointegrated pairs",
			Content:     "# Pairs Trading\n\nGuidance here.\n",
		})
		require.NoError(t, err)

		assert.Contains(t, rendered, "---\nname: pairs-trading\n")
		assert.Contains(t, rendered, "description: Use when analyzing cointegrated pairs\n")
		assert.Contains(t, rendered, "# Pairs Trading")
	})

	t.Run("name required", func(t *testing.T) {
		_, err := Render(&Skill{Description: "d"})
		assert.Error(t, err)
	})

	t.Run("description required", func(t *testing.T) {
		_, err := Render(&Skill{Name: "n"})
		assert.Error(t, err)
	})
}

func TestWriteAndDiscoverRoundTrip(t *testing.T) {
	out := t.TempDir()

	require.NoError(t, Write(out, &Skill{
		Name:        "unit-testing",
		Description: "Use when writing or reviewing unit tests",
		Content:     "# Unit Testing\n\nBody.\n",
	}))

	discovery := NewDiscovery(out)
	skills, err := discovery.DiscoverSkills()
	require.NoError(t, err)
	require.Len(t, skills, 1)

	skill := skills["unit-testing"]
	require.NotNil(t, skill)
	assert.Equal(t, "Use when writing or reviewing unit tests", skill.Description)
	assert.Contains(t, skill.Content, "# Unit Testing")
	assert.Equal(t, filepath.Join(out, "unit-testing"), skill.Directory)
}

func TestDiscoverNestedTopicLayout(t *testing.T) {
	out := t.TempDir()

	skillDir := filepath.Join(out, "arbitrage", "statistical-arbitrage")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	manifest := `---
name: statistical-arbitrage
description: Use when testing cointegration between pairs
---

# Statistical Arbitrage
`
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(manifest), 0o644))

	// A stray directory without a manifest is skipped, not an error.
	require.NoError(t, os.MkdirAll(filepath.Join(out, "scratch"), 0o755))

	discovery := NewDiscovery(out)
	names, err := discovery.ListSkillNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"statistical-arbitrage"}, names)
}

func TestDiscoverRejectsIncompleteFrontmatter(t *testing.T) {
	out := t.TempDir()

	skillDir := filepath.Join(out, "broken")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte("---\nname: broken\n---\nno description\n"), 0o644))

	discovery := NewDiscovery(out)
	skills, err := discovery.DiscoverSkills()
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestScaffold(t *testing.T) {
	out := t.TempDir()

	require.NoError(t, Scaffold(out, "my-skill"))

	content, err := os.ReadFile(filepath.Join(out, "my-skill", "SKILL.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "name: my-skill")
	assert.Contains(t, string(content), "# my-skill")
}
