package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./foo/bar  ", expected: "foo/bar"},
		{name: "Relative", input: "foo/../bar", expected: "bar"},
		{name: "Backslashes", input: `foo\bar`, expected: "foo/bar"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePatternPath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestRelSlash(t *testing.T) {
	root := filepath.FromSlash("/proj/src")

	rel, ok := RelSlash(root, filepath.Join(root, "a", "b.ts"))
	if !ok || rel != "a/b.ts" {
		t.Fatalf("expected a/b.ts, got %q (ok=%v)", rel, ok)
	}
	if _, ok := RelSlash(root, filepath.FromSlash("/proj/other/x.ts")); ok {
		t.Fatal("expected path outside root to be rejected")
	}
	if _, ok := RelSlash(root, filepath.FromSlash("/proj/src-other/x.ts")); ok {
		t.Fatal("expected sibling directory with shared prefix to be rejected")
	}
}

func TestPathMatcher(t *testing.T) {
	t.Parallel()

	m, err := CompilePathMatcher([]string{"b.ts", "node_modules", "**/*.spec.ts", "vendor/lib", " "})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		path     string
		expected bool
	}{
		{"b.ts", true},
		{"pkg/b.ts", true},
		{"a.ts", false},
		{"node_modules/react/index.js", true},
		{"src/app.spec.ts", true},
		{"app.spec.ts", false},
		{"vendor/lib/x.ts", true},
		{"vendor/library/x.ts", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := m.Match(tc.path); got != tc.expected {
			t.Errorf("Match(%q) = %v, expected %v", tc.path, got, tc.expected)
		}
	}
	if len(m.Patterns()) != 4 {
		t.Errorf("expected blank pattern to be skipped, got %v", m.Patterns())
	}
}

func TestPathMatcherInvalidPattern(t *testing.T) {
	if _, err := CompilePathMatcher([]string{"[a-"}); err == nil {
		t.Fatal("expected invalid glob to fail compilation")
	}
	var nilMatcher *PathMatcher
	if nilMatcher.Match("a.ts") {
		t.Fatal("nil matcher should never match")
	}
}

func TestSortedStringKeys(t *testing.T) {
	keys := SortedStringKeys(map[string]int{"b": 1, "a": 2, "c": 3})
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("unexpected key order %v", keys)
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "nested", "dir", "file.json")

	if err := WriteFileWithDirs(target, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFileWithDirs returned error: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(got) != "{}" {
		t.Fatalf("expected {}, got %q", string(got))
	}
}
