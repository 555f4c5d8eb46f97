package query

import (
	"context"
	"path/filepath"
	"testing"

	"structmap/internal/engine/graph"
	"structmap/internal/engine/parser"
	"structmap/internal/engine/structure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRoot = filepath.FromSlash("/proj/src")

func record(rel string, imports ...string) parser.ModuleRecord {
	rec := parser.ModuleRecord{Path: filepath.Join(testRoot, rel), Language: "typescript"}
	for _, imp := range imports {
		rec.Imports = append(rec.Imports, parser.ModuleImport{Path: filepath.Join(testRoot, imp), Raw: imp})
	}
	return rec
}

func seedRows(t *testing.T) []Row {
	t.Helper()
	tree, err := structure.Build(structure.Options{Root: testRoot}, []parser.ModuleRecord{
		record("a/x.ts", "b/y.ts"),
		record("b/y.ts"),
		record("main.ts", "a/x.ts"),
		record("c1.ts", "c2.ts"),
		record("c2.ts", "c1.ts"),
	})
	require.NoError(t, err)
	_, err = graph.LevelizeTree(context.Background(), tree, 1)
	require.NoError(t, err)
	return Collect(tree)
}

func ids(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestParse(t *testing.T) {
	q, err := Parse(`select modules where level >= 1 AND name CONTAINS "app/" and cyclic = false order by fan_in desc`)
	require.NoError(t, err)
	assert.Equal(t, "modules", q.Target)
	assert.Equal(t, "fan_in", q.OrderBy)
	assert.True(t, q.Descending)
	require.Len(t, q.Conditions, 3)
	assert.Equal(t, Condition{Field: "level", Op: ">=", IntVal: 1, IsInt: true}, q.Conditions[0])
	assert.Equal(t, Condition{Field: "name", Op: "contains", StrVal: "app/", IsStr: true}, q.Conditions[1])
	assert.Equal(t, Condition{Field: "cyclic", Op: "=", IntVal: 0, IsInt: true}, q.Conditions[2])
}

func TestParse_Invalid(t *testing.T) {
	for _, raw := range []string{
		"DELETE FROM modules",
		"SELECT files",
		"SELECT modules WHERE bogus = 1",
		"SELECT modules WHERE level ~ 1",
		"SELECT modules ORDER BY bogus",
	} {
		_, err := Parse(raw)
		assert.Error(t, err, raw)
	}
}

func TestCollect_GroupMetrics(t *testing.T) {
	rows := seedRows(t)
	byID := make(map[string]Row, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	a := byID["a"]
	assert.Equal(t, structure.KindPackage, a.Kind)
	assert.Equal(t, 1, a.Level)
	assert.Equal(t, 1, a.FanIn)
	assert.Equal(t, 1, a.FanOut)
	assert.Equal(t, 1, a.Children)

	main := byID["main.ts"]
	assert.Equal(t, 2, main.Level)
	assert.Equal(t, 0, main.FanIn)
	assert.Equal(t, "typescript", main.Language)

	assert.True(t, byID["c1.ts"].Cyclic)
	assert.NotContains(t, byID, ".", "the root is not part of any sibling group")
}

func TestExecute(t *testing.T) {
	rows := seedRows(t)

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
		exact bool
	}{
		{name: "cyclic modules", query: `SELECT modules WHERE cyclic = true`, want: []string{"c1.ts", "c2.ts"}},
		{name: "packages by level", query: `SELECT packages ORDER BY level DESC`, want: []string{"a", "b"}, exact: true},
		{name: "string and numeric", query: `SELECT nodes WHERE parent = "." AND fan_in >= 1`, want: []string{"a", "b", "c1.ts", "c2.ts"}},
		{name: "contains", query: `SELECT modules WHERE id CONTAINS "b/"`, want: []string{"b/y.ts"}},
		{name: "limit", query: `SELECT modules ORDER BY level DESC`, limit: 1, want: []string{"main.ts"}, exact: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.query)
			require.NoError(t, err)
			got, err := Execute(q, rows, tt.limit)
			require.NoError(t, err)
			if tt.exact {
				assert.Equal(t, tt.want, ids(got))
			} else {
				assert.ElementsMatch(t, tt.want, ids(got))
			}
		})
	}
}

func TestExecute_TypeMismatch(t *testing.T) {
	q, err := Parse(`SELECT modules WHERE name > 3`)
	require.NoError(t, err)
	_, err = Execute(q, seedRows(t), 0)
	assert.Error(t, err)
}
