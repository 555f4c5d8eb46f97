package output

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"structmap/internal/output/viewmodel"
)

// MermaidGenerator renders the leveled tree as a Mermaid flowchart with one
// subgraph per package.
type MermaidGenerator struct {
	vm *viewmodel.ViewModel
}

func NewMermaidGenerator(vm *viewmodel.ViewModel) *MermaidGenerator {
	return &MermaidGenerator{vm: vm}
}

func (m *MermaidGenerator) Generate() (string, error) {
	if m.vm == nil {
		return "", fmt.Errorf("mermaid: nil view model")
	}
	var b strings.Builder
	b.WriteString("%%{init: {'flowchart': {'nodeSpacing': 60, 'rankSpacing': 80, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart BT\n")

	var names []string
	collectIDs(m.vm.Root, &names)
	ids := makeMermaidIDs(names)

	var cyclicNodes []string
	edges := append([]viewmodel.EdgeView(nil), m.vm.Root.Dependencies...)
	for _, child := range m.vm.Root.Children {
		writeMermaidNode(&b, child, ids, "  ", &cyclicNodes, &edges)
	}

	b.WriteString("\n")
	var cyclicLinks []string
	for i, e := range edges {
		b.WriteString(fmt.Sprintf("  %s --> %s\n", ids[e.From], ids[e.To]))
		if e.Cyclic {
			cyclicLinks = append(cyclicLinks, strconv.Itoa(i))
		}
	}

	if len(cyclicNodes) > 0 {
		b.WriteString("\n  classDef cycleNode fill:#ffecec,stroke:#cc0000,stroke-width:2px;\n")
		b.WriteString("  class ")
		b.WriteString(strings.Join(cyclicNodes, ","))
		b.WriteString(" cycleNode;\n")
	}
	if len(cyclicLinks) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#cc0000,stroke-width:2px;\n", strings.Join(cyclicLinks, ",")))
	}
	return b.String(), nil
}

func writeMermaidNode(b *strings.Builder, n viewmodel.NodeView, ids map[string]string, indent string, cyclic *[]string, edges *[]viewmodel.EdgeView) {
	id := ids[n.ID]
	if n.Cyclic {
		*cyclic = append(*cyclic, id)
	}
	label := escapeMermaidLabel(fmt.Sprintf("%s (L%d)", n.Name, n.Level))
	if n.Kind != "package" {
		b.WriteString(fmt.Sprintf("%s%s[\"%s\"]\n", indent, id, label))
		return
	}
	b.WriteString(fmt.Sprintf("%ssubgraph %s[\"%s\"]\n", indent, id, label))
	for _, child := range n.Children {
		writeMermaidNode(b, child, ids, indent+"  ", cyclic, edges)
	}
	b.WriteString(indent + "end\n")
	*edges = append(*edges, n.Dependencies...)
}

func collectIDs(n viewmodel.NodeView, out *[]string) {
	*out = append(*out, n.ID)
	for _, c := range n.Children {
		collectIDs(c, out)
	}
}

func sanitizeMermaidID(name string) string {
	if name == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if unicode.IsDigit(rune(out[0])) {
		return "m_" + out
	}
	return out
}

// makeMermaidIDs assigns unique identifiers, suffixing collisions in order.
func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
