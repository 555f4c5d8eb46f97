package util

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// PathMatcher matches root-relative slash paths against exclusion globs.
// A path matches when the pattern matches the whole path, any ancestor
// directory path, or any single segment.
type PathMatcher struct {
	patterns []string
	globs    []glob.Glob
}

func CompilePathMatcher(patterns []string) (*PathMatcher, error) {
	m := &PathMatcher{}
	for _, raw := range patterns {
		p := NormalizePatternPath(raw)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
		}
		m.patterns = append(m.patterns, p)
		m.globs = append(m.globs, g)
	}
	return m, nil
}

func (m *PathMatcher) Empty() bool {
	return m == nil || len(m.globs) == 0
}

func (m *PathMatcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.patterns...)
}

func (m *PathMatcher) Match(rel string) bool {
	if m.Empty() {
		return false
	}
	rel = NormalizePatternPath(rel)
	if rel == "" {
		return false
	}

	segments := strings.Split(rel, "/")
	for _, g := range m.globs {
		for i := range segments {
			if g.Match(segments[i]) || g.Match(strings.Join(segments[:i+1], "/")) {
				return true
			}
		}
	}
	return false
}
