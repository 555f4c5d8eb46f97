package graph

import "sort"

// GroupResult is the leveling of one sibling group.
type GroupResult struct {
	Levels map[string]int
	// Cycles lists every strongly connected component with more than one
	// member, members in group order.
	Cycles [][]string

	componentOf    map[string]int
	componentSizes map[int]int
}

// InCycle reports whether id belongs to a cyclic group.
func (r GroupResult) InCycle(id string) bool {
	comp, ok := r.componentOf[id]
	return ok && r.componentSizes[comp] > 1
}

// SameCycle reports whether from and to are members of one cyclic group.
func (r GroupResult) SameCycle(from, to string) bool {
	a, okA := r.componentOf[from]
	b, okB := r.componentOf[to]
	return okA && okB && a == b && r.componentSizes[a] > 1
}

// Levelize assigns every node of a sibling group the length of its longest
// dependency path to a sink in the condensation. Members of one cyclic group
// share a level. Edges to nodes outside the group and self-edges are ignored.
func Levelize(nodes []string, edges map[string][]string) GroupResult {
	position := make(map[string]int, len(nodes))
	ordered := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := position[n]; dup {
			continue
		}
		position[n] = len(ordered)
		ordered = append(ordered, n)
	}

	adjacency := make(map[string][]string, len(ordered))
	for _, from := range ordered {
		seen := make(map[string]bool)
		for _, to := range edges[from] {
			if _, inGroup := position[to]; !inGroup || to == from || seen[to] {
				continue
			}
			seen[to] = true
			adjacency[from] = append(adjacency[from], to)
		}
	}

	componentOf, components := stronglyConnectedComponents(ordered, adjacency, position)

	componentEdges := make(map[int]map[int]bool, len(components))
	for _, from := range ordered {
		fromComp := componentOf[from]
		for _, to := range adjacency[from] {
			toComp := componentOf[to]
			if fromComp == toComp {
				continue
			}
			if componentEdges[fromComp] == nil {
				componentEdges[fromComp] = make(map[int]bool)
			}
			componentEdges[fromComp][toComp] = true
		}
	}

	levelByComp := make(map[int]int, len(components))
	var computeLevel func(int) int
	computeLevel = func(comp int) int {
		if level, ok := levelByComp[comp]; ok {
			return level
		}
		maxLevel := 0
		for next := range componentEdges[comp] {
			candidate := 1 + computeLevel(next)
			if candidate > maxLevel {
				maxLevel = candidate
			}
		}
		levelByComp[comp] = maxLevel
		return maxLevel
	}

	res := GroupResult{
		Levels:         make(map[string]int, len(ordered)),
		componentOf:    componentOf,
		componentSizes: make(map[int]int, len(components)),
	}
	for comp, members := range components {
		res.componentSizes[comp] = len(members)
		if len(members) > 1 {
			res.Cycles = append(res.Cycles, members)
		}
	}
	sort.SliceStable(res.Cycles, func(i, j int) bool {
		return position[res.Cycles[i][0]] < position[res.Cycles[j][0]]
	})
	for _, n := range ordered {
		res.Levels[n] = computeLevel(componentOf[n])
	}
	return res
}

// stronglyConnectedComponents is Tarjan's algorithm. Components come back in
// reverse topological order with members sorted by group position.
func stronglyConnectedComponents(nodes []string, adjacency map[string][]string, position map[string]int) (map[string]int, [][]string) {
	index := 0
	stack := make([]string, 0, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	indexByNode := make(map[string]int, len(nodes))
	lowLink := make(map[string]int, len(nodes))
	componentOf := make(map[string]int, len(nodes))
	components := make([][]string, 0)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indexByNode[v] = index
		lowLink[v] = index
		index++

		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacency[v] {
			if _, seen := indexByNode[w]; !seen {
				strongConnect(w)
				if lowLink[w] < lowLink[v] {
					lowLink[v] = lowLink[w]
				}
			} else if onStack[w] && indexByNode[w] < lowLink[v] {
				lowLink[v] = indexByNode[w]
			}
		}

		if lowLink[v] != indexByNode[v] {
			return
		}

		component := make([]string, 0)
		for {
			last := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[last] = false
			component = append(component, last)
			if last == v {
				break
			}
		}
		sort.Slice(component, func(i, j int) bool {
			return position[component[i]] < position[component[j]]
		})
		compID := len(components)
		components = append(components, component)
		for _, n := range component {
			componentOf[n] = compID
		}
	}

	for _, node := range nodes {
		if _, seen := indexByNode[node]; !seen {
			strongConnect(node)
		}
	}

	return componentOf, components
}
