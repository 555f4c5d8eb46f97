// Package query filters the nodes of a leveled structure tree with a small
// SELECT ... WHERE language.
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	cqlSelectRE       = regexp.MustCompile(`(?i)^\s*SELECT\s+(modules|packages|nodes)(?:\s+WHERE\s+(.+?))?(?:\s+ORDER\s+BY\s+([a-z_]+)(?:\s+(ASC|DESC))?)?\s*$`)
	cqlAndSplitRE     = regexp.MustCompile(`(?i)\s+AND\s+`)
	cqlNumericCondRE  = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*(>=|<=|!=|=|>|<)\s*(-?[0-9]+)\s*$`)
	cqlContainsCondRE = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s+CONTAINS\s+['"]([^'"]+)['"]\s*$`)
	cqlStringCondRE   = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*(=|!=)\s*['"]([^'"]+)['"]\s*$`)
	cqlBoolCondRE     = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*(=|!=)\s*(true|false)\s*$`)
)

// Query is a parsed statement, e.g.
//
//	SELECT modules WHERE level >= 2 AND cyclic = true ORDER BY level DESC
type Query struct {
	Target     string
	Conditions []Condition
	OrderBy    string
	Descending bool
}

type Condition struct {
	Field  string
	Op     string
	IntVal int
	StrVal string
	IsInt  bool
	IsStr  bool
}

func Parse(raw string) (Query, error) {
	matches := cqlSelectRE.FindStringSubmatch(strings.TrimSpace(raw))
	if len(matches) == 0 {
		return Query{}, fmt.Errorf("invalid query: expected SELECT modules|packages|nodes [WHERE ...] [ORDER BY field [ASC|DESC]]")
	}

	q := Query{
		Target:     strings.ToLower(matches[1]),
		OrderBy:    strings.ToLower(matches[3]),
		Descending: strings.EqualFold(matches[4], "DESC"),
	}
	if q.OrderBy != "" && !knownField(q.OrderBy) {
		return Query{}, fmt.Errorf("unknown order field %q", q.OrderBy)
	}

	where := strings.TrimSpace(matches[2])
	if where == "" {
		return q, nil
	}
	parts := cqlAndSplitRE.Split(where, -1)
	q.Conditions = make([]Condition, 0, len(parts))
	for _, part := range parts {
		cond, err := parseCondition(part)
		if err != nil {
			return Query{}, err
		}
		if !knownField(cond.Field) {
			return Query{}, fmt.Errorf("unknown field %q", cond.Field)
		}
		q.Conditions = append(q.Conditions, cond)
	}
	return q, nil
}

func parseCondition(raw string) (Condition, error) {
	if match := cqlNumericCondRE.FindStringSubmatch(raw); len(match) == 4 {
		value, err := strconv.Atoi(strings.TrimSpace(match[3]))
		if err != nil {
			return Condition{}, fmt.Errorf("invalid numeric value %q: %w", match[3], err)
		}
		return Condition{
			Field:  strings.ToLower(strings.TrimSpace(match[1])),
			Op:     strings.TrimSpace(match[2]),
			IntVal: value,
			IsInt:  true,
		}, nil
	}

	// Booleans compare as 0/1 so cyclic = true and cyclic = 1 mean the same.
	if match := cqlBoolCondRE.FindStringSubmatch(raw); len(match) == 4 {
		value := 0
		if strings.EqualFold(match[3], "true") {
			value = 1
		}
		return Condition{
			Field:  strings.ToLower(strings.TrimSpace(match[1])),
			Op:     strings.TrimSpace(match[2]),
			IntVal: value,
			IsInt:  true,
		}, nil
	}

	if match := cqlContainsCondRE.FindStringSubmatch(raw); len(match) == 3 {
		return Condition{
			Field:  strings.ToLower(strings.TrimSpace(match[1])),
			Op:     "contains",
			StrVal: strings.TrimSpace(match[2]),
			IsStr:  true,
		}, nil
	}

	if match := cqlStringCondRE.FindStringSubmatch(raw); len(match) == 4 {
		return Condition{
			Field:  strings.ToLower(strings.TrimSpace(match[1])),
			Op:     strings.TrimSpace(match[2]),
			StrVal: strings.TrimSpace(match[3]),
			IsStr:  true,
		}, nil
	}

	return Condition{}, fmt.Errorf("invalid condition %q", strings.TrimSpace(raw))
}
