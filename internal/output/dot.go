package output

import (
	"fmt"
	"sort"
	"strings"

	"structmap/internal/output/viewmodel"
)

// DOTGenerator renders the leveled tree as a Graphviz digraph. Every package
// becomes a cluster with an anchor node standing in for it in its parent's
// group; siblings sharing a level share a rank.
type DOTGenerator struct {
	vm *viewmodel.ViewModel
}

func NewDOTGenerator(vm *viewmodel.ViewModel) *DOTGenerator {
	return &DOTGenerator{vm: vm}
}

func (d *DOTGenerator) Generate() (string, error) {
	if d.vm == nil {
		return "", fmt.Errorf("dot: nil view model")
	}
	var buf strings.Builder

	buf.WriteString("digraph structure {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=0.9;\n")
	buf.WriteString("  nodesep=0.5;\n\n")

	d.writePackage(&buf, d.vm.Root, "  ")

	// Legend
	buf.WriteString("\n  subgraph cluster_legend {\n")
	buf.WriteString("    label=\"Legend\";\n")
	buf.WriteString("    style=dashed;\n")
	buf.WriteString("    legend_package [label=\"Package\", shape=folder];\n")
	buf.WriteString("    legend_module [label=\"Module\", fillcolor=\"white\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_cycle [label=\"Cyclic Group\", fillcolor=\"mistyrose\", color=\"red\", style=\"rounded,filled\"];\n")
	buf.WriteString("  }\n")

	buf.WriteString("}\n")
	return buf.String(), nil
}

func (d *DOTGenerator) writePackage(buf *strings.Builder, pkg viewmodel.NodeView, indent string) {
	fmt.Fprintf(buf, "%ssubgraph %s {\n", indent, dotQuote("cluster_"+pkg.ID))
	inner := indent + "  "
	fmt.Fprintf(buf, "%slabel=%s;\n", inner, dotQuote(pkg.Name))
	buf.WriteString(inner + "style=filled;\n")
	buf.WriteString(inner + "color=\"whitesmoke\";\n")
	fmt.Fprintf(buf, "%s%s [label=%s, shape=folder%s];\n", inner, dotQuote(anchorID(pkg.ID)), dotQuote(levelLabel(pkg)), cycleAttrs(pkg.Cyclic))

	for _, child := range pkg.Children {
		if child.Kind == "package" {
			d.writePackage(buf, child, inner)
			continue
		}
		fmt.Fprintf(buf, "%s%s [label=%s, fillcolor=\"white\", style=\"rounded,filled\"%s];\n", inner, dotQuote(child.ID), dotQuote(levelLabel(child)), cycleAttrs(child.Cyclic))
	}

	for _, rank := range rankGroups(pkg.Children) {
		ids := make([]string, 0, len(rank))
		for _, child := range rank {
			ids = append(ids, dotQuote(nodeRef(child)))
		}
		fmt.Fprintf(buf, "%s{ rank=same; %s; }\n", inner, strings.Join(ids, "; "))
	}

	kinds := make(map[string]string, len(pkg.Children))
	for _, child := range pkg.Children {
		kinds[child.ID] = child.Kind
	}
	for _, e := range pkg.Dependencies {
		from := endpointRef(e.From, kinds)
		to := endpointRef(e.To, kinds)
		if e.Cyclic {
			fmt.Fprintf(buf, "%s%s -> %s [color=\"red\", penwidth=2.0, label=\"CYCLE\"];\n", inner, dotQuote(from), dotQuote(to))
		} else {
			fmt.Fprintf(buf, "%s%s -> %s [color=\"forestgreen\"];\n", inner, dotQuote(from), dotQuote(to))
		}
	}
	fmt.Fprintf(buf, "%s}\n", indent)
}

// rankGroups buckets siblings by level, skipping singleton levels.
func rankGroups(children []viewmodel.NodeView) [][]viewmodel.NodeView {
	byLevel := make(map[int][]viewmodel.NodeView)
	for _, c := range children {
		byLevel[c.Level] = append(byLevel[c.Level], c)
	}
	levels := make([]int, 0, len(byLevel))
	for lvl, members := range byLevel {
		if len(members) > 1 {
			levels = append(levels, lvl)
		}
	}
	sort.Ints(levels)
	out := make([][]viewmodel.NodeView, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, byLevel[lvl])
	}
	return out
}

func nodeRef(n viewmodel.NodeView) string {
	if n.Kind == "package" {
		return anchorID(n.ID)
	}
	return n.ID
}

func endpointRef(id string, kinds map[string]string) string {
	if kinds[id] == "package" {
		return anchorID(id)
	}
	return id
}

func anchorID(pkgID string) string {
	return "pkg:" + pkgID
}

func levelLabel(n viewmodel.NodeView) string {
	return fmt.Sprintf("%s\\n(level %d)", n.Name, n.Level)
}

func cycleAttrs(cyclic bool) string {
	if !cyclic {
		return ""
	}
	return ", fillcolor=\"mistyrose\", color=\"red\", style=\"rounded,filled\", penwidth=2.0"
}

func dotQuote(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}
