package query

import (
	"fmt"
	"sort"
	"strings"

	"structmap/internal/engine/structure"
)

// Row is one tree node with the group-local metrics queries can filter on.
type Row struct {
	ID         string
	Name       string
	Kind       structure.Kind
	Parent     string
	Language   string
	Level      int
	Cyclic     bool
	FanIn      int
	FanOut     int
	Children   int
	Unresolved int
}

var intFields = map[string]func(Row) int{
	"level":      func(r Row) int { return r.Level },
	"fan_in":     func(r Row) int { return r.FanIn },
	"fan_out":    func(r Row) int { return r.FanOut },
	"children":   func(r Row) int { return r.Children },
	"unresolved": func(r Row) int { return r.Unresolved },
	"cyclic": func(r Row) int {
		if r.Cyclic {
			return 1
		}
		return 0
	},
}

var stringFields = map[string]func(Row) string{
	"id":       func(r Row) string { return r.ID },
	"name":     func(r Row) string { return r.Name },
	"kind":     func(r Row) string { return string(r.Kind) },
	"parent":   func(r Row) string { return r.Parent },
	"language": func(r Row) string { return r.Language },
}

func knownField(name string) bool {
	_, isInt := intFields[name]
	_, isStr := stringFields[name]
	return isInt || isStr
}

// Collect flattens the tree into rows in walk order. The root package is not
// a member of any sibling group and is skipped.
func Collect(tree *structure.Tree) []Row {
	var rows []Row
	tree.Walk(func(p *structure.Package) {
		fanIn := make(map[string]int)
		fanOut := make(map[string]int)
		for _, e := range p.Dependencies {
			fanOut[e.From]++
			fanIn[e.To]++
		}
		for _, child := range p.Packages {
			rows = append(rows, Row{
				ID:       child.ID,
				Name:     child.Name,
				Kind:     structure.KindPackage,
				Parent:   p.ID,
				Level:    child.Level,
				Cyclic:   child.Cyclic,
				FanIn:    fanIn[child.ID],
				FanOut:   fanOut[child.ID],
				Children: len(child.Packages) + len(child.Modules),
			})
		}
		for _, mod := range p.Modules {
			rows = append(rows, Row{
				ID:         mod.ID,
				Name:       mod.Name,
				Kind:       structure.KindModule,
				Parent:     p.ID,
				Language:   mod.Language,
				Level:      mod.Level,
				Cyclic:     mod.Cyclic,
				FanIn:      fanIn[mod.ID],
				FanOut:     fanOut[mod.ID],
				Unresolved: len(mod.Unresolved),
			})
		}
	})
	return rows
}

// Execute filters rows by q. A non-positive limit returns every match.
func Execute(q Query, rows []Row, limit int) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !targetMatches(q.Target, r.Kind) {
			continue
		}
		ok, err := matches(r, q.Conditions)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}

	if q.OrderBy != "" {
		less := orderFunc(q.OrderBy)
		sort.SliceStable(out, func(i, j int) bool {
			if q.Descending {
				return less(out[j], out[i])
			}
			return less(out[i], out[j])
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func targetMatches(target string, kind structure.Kind) bool {
	switch target {
	case "modules":
		return kind == structure.KindModule
	case "packages":
		return kind == structure.KindPackage
	default:
		return true
	}
}

func matches(r Row, conditions []Condition) (bool, error) {
	for _, c := range conditions {
		ok, err := evaluate(r, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func evaluate(r Row, c Condition) (bool, error) {
	if c.IsInt {
		get, ok := intFields[c.Field]
		if !ok {
			return false, fmt.Errorf("field %q is not numeric", c.Field)
		}
		v := get(r)
		switch c.Op {
		case "=":
			return v == c.IntVal, nil
		case "!=":
			return v != c.IntVal, nil
		case ">":
			return v > c.IntVal, nil
		case ">=":
			return v >= c.IntVal, nil
		case "<":
			return v < c.IntVal, nil
		case "<=":
			return v <= c.IntVal, nil
		}
		return false, fmt.Errorf("unsupported numeric operator %q", c.Op)
	}

	get, ok := stringFields[c.Field]
	if !ok {
		return false, fmt.Errorf("field %q is not a string", c.Field)
	}
	v := get(r)
	switch c.Op {
	case "=":
		return v == c.StrVal, nil
	case "!=":
		return v != c.StrVal, nil
	case "contains":
		return strings.Contains(v, c.StrVal), nil
	}
	return false, fmt.Errorf("unsupported string operator %q", c.Op)
}

func orderFunc(field string) func(a, b Row) bool {
	if get, ok := intFields[field]; ok {
		return func(a, b Row) bool { return get(a) < get(b) }
	}
	get := stringFields[field]
	return func(a, b Row) bool { return get(a) < get(b) }
}
