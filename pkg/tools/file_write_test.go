package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriteTool_Name(t *testing.T) {
	tool := &FileWriteTool{}
	assert.Equal(t, "write_file", tool.Name())
}

func TestFileWriteTool_ValidateInput(t *testing.T) {
	tool := &FileWriteTool{}
	state, _ := newTestState(t)

	t.Run("valid input", func(t *testing.T) {
		err := tool.ValidateInput(state, `{"path": "out.md", "text": "content"}`)
		assert.NoError(t, err)
	})

	t.Run("missing path", func(t *testing.T) {
		err := tool.ValidateInput(state, `{"text": "content"}`)
		assert.ErrorContains(t, err, "path is required")
	})

	t.Run("missing text", func(t *testing.T) {
		err := tool.ValidateInput(state, `{"path": "out.md"}`)
		assert.ErrorContains(t, err, "text is required")
	})

	t.Run("malformed json", func(t *testing.T) {
		err := tool.ValidateInput(state, `{"path": `)
		assert.Error(t, err)
	})
}

func TestFileWriteTool_Execute(t *testing.T) {
	tool := &FileWriteTool{}
	state, root := newTestState(t)

	t.Run("writes file and creates parent directories", func(t *testing.T) {
		result := tool.Execute(context.Background(), state, `{"path": "produced_skill/testing/unit-testing/SKILL.md", "text": "# Unit Testing\n"}`)
		require.False(t, result.IsError(), result.Error)

		written, err := os.ReadFile(filepath.Join(root, "produced_skill", "testing", "unit-testing", "SKILL.md"))
		require.NoError(t, err)
		assert.Equal(t, "# Unit Testing\n", string(written))
		assert.Contains(t, result.Result, "has been written successfully")
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		path := filepath.Join(root, "note.md")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

		result := tool.Execute(context.Background(), state, `{"path": "note.md", "text": "new"}`)
		require.False(t, result.IsError())

		written, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(written))
	})

	t.Run("refuses to write outside workspace via traversal", func(t *testing.T) {
		result := tool.Execute(context.Background(), state, `{"path": "../escape.md", "text": "nope"}`)
		assert.True(t, result.IsError())
		assert.Contains(t, result.Error, "escapes workspace root")

		_, err := os.Stat(filepath.Join(filepath.Dir(root), "escape.md"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("refuses absolute path outside workspace", func(t *testing.T) {
		result := tool.Execute(context.Background(), state, `{"path": "/tmp/bookforge-escape.md", "text": "nope"}`)
		assert.True(t, result.IsError())
		assert.Contains(t, result.Error, "escapes workspace root")
	})

	t.Run("target is a directory", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "adir"), 0o755))
		result := tool.Execute(context.Background(), state, `{"path": "adir", "text": "nope"}`)
		assert.True(t, result.IsError())
		assert.Contains(t, result.Error, "is a directory")
	})
}
