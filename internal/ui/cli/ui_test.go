package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	coreapp "structmap/internal/core/app"
	"structmap/internal/core/config"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildResult(t *testing.T, files map[string]string) *coreapp.Result {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	cfg := config.Default()
	cfg.RootDir = root
	a, err := coreapp.New(cfg)
	require.NoError(t, err)
	res, err := a.Build(context.Background())
	require.NoError(t, err)
	return res
}

func TestNewUpdateMsg(t *testing.T) {
	res := buildResult(t, map[string]string{
		"a.ts": `import "./b"; import "left-pad";`,
		"b.ts": `import "./a";`,
		"c.ts": ``,
	})

	msg := newUpdateMsg(res, nil)
	assert.Equal(t, 3, msg.moduleCount)
	assert.Equal(t, 1, msg.cycles)
	assert.Equal(t, res.Tree.UnresolvedCount(), msg.unresolved)
	require.NotEmpty(t, msg.items)
	first := msg.items[0].(item)
	assert.Equal(t, itemCycle, first.title)
	assert.Contains(t, first.desc, "a.ts <-> b.ts")
}

func TestModel_Update(t *testing.T) {
	res := buildResult(t, map[string]string{
		"a.ts": `import "./b";`,
		"b.ts": ``,
	})

	var m tea.Model = initialModel("src")
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m, _ = m.Update(newUpdateMsg(res, nil))
	view := m.View()
	assert.Contains(t, view, "Structure Map: src")
	assert.Contains(t, view, "2 modules")
	assert.Contains(t, view, "Acyclic")

	m, _ = m.Update(newUpdateMsg(nil, errors.New("parse failure")))
	view = m.View()
	assert.Contains(t, view, "Rebuild failed: parse failure")
	assert.Contains(t, view, "2 modules", "a failed rebuild keeps the last counts")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
