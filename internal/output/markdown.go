package output

import (
	"fmt"
	"strings"
	"time"

	"structmap/internal/output/viewmodel"
)

type MarkdownOptions struct {
	ProjectName    string
	GeneratedAt    time.Time
	RunID          string
	IncludeMermaid bool
}

// MarkdownGenerator renders a level report: one table per package listing
// its children by level, then the cyclic groups and unresolved imports.
type MarkdownGenerator struct {
	vm *viewmodel.ViewModel
}

func NewMarkdownGenerator(vm *viewmodel.ViewModel) *MarkdownGenerator {
	return &MarkdownGenerator{vm: vm}
}

func (m *MarkdownGenerator) Generate(opts MarkdownOptions) (string, error) {
	if m.vm == nil {
		return "", fmt.Errorf("markdown: nil view model")
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}

	var packages []viewmodel.NodeView
	collectPackages(m.vm.Root, &packages)
	var cycles [][]string
	var unresolved []string
	for _, p := range packages {
		cycles = append(cycles, p.Cycles...)
		for _, c := range p.Children {
			for _, spec := range c.Unresolved {
				unresolved = append(unresolved, fmt.Sprintf("| `%s` | `%s` |\n", c.ID, spec))
			}
		}
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Structure Map\n")
	b.WriteString("project: " + nonEmpty(opts.ProjectName, m.vm.Root.Name) + "\n")
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("run_id: " + nonEmpty(opts.RunID, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Structure Map\n\n")
	b.WriteString("## Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Modules | %d |\n", m.vm.Modules))
	b.WriteString(fmt.Sprintf("| Packages | %d |\n", m.vm.Packages))
	b.WriteString(fmt.Sprintf("| Cyclic Groups | %d |\n", len(cycles)))
	b.WriteString(fmt.Sprintf("| Unresolved Imports | %d |\n", len(unresolved)))
	b.WriteString(fmt.Sprintf("| Excluded | %d |\n\n", len(m.vm.Excluded)))

	b.WriteString("## Levels\n")
	for _, p := range packages {
		if len(p.Children) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("### `%s`\n", p.ID))
		b.WriteString("| Level | Name | Kind | Cyclic |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		// Highest level first so the table reads top-down like the diagram.
		for level := maxChildLevel(p); level >= 0; level-- {
			for _, c := range p.Children {
				if c.Level != level {
					continue
				}
				cyclic := ""
				if c.Cyclic {
					cyclic = "yes"
				}
				b.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n", c.Level, c.Name, c.Kind, cyclic))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Cyclic Groups\n")
	if len(cycles) == 0 {
		b.WriteString("No cyclic groups.\n\n")
	} else {
		b.WriteString("| # | Members |\n")
		b.WriteString("| --- | --- |\n")
		for i, group := range cycles {
			b.WriteString(fmt.Sprintf("| %d | `%s` |\n", i+1, strings.Join(group, "` <-> `")))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Unresolved Imports\n")
	if len(unresolved) == 0 {
		b.WriteString("All imports resolved.\n\n")
	} else {
		b.WriteString("| Module | Specifier |\n")
		b.WriteString("| --- | --- |\n")
		for _, row := range unresolved {
			b.WriteString(row)
		}
		b.WriteString("\n")
	}

	if opts.IncludeMermaid {
		diagram, err := NewMermaidGenerator(m.vm).Generate()
		if err != nil {
			return "", err
		}
		b.WriteString("## Diagram\n")
		b.WriteString("```mermaid\n")
		b.WriteString(strings.TrimSpace(diagram))
		b.WriteString("\n```\n")
	}
	return b.String(), nil
}

func collectPackages(n viewmodel.NodeView, out *[]viewmodel.NodeView) {
	if n.Kind != "package" {
		return
	}
	*out = append(*out, n)
	for _, c := range n.Children {
		collectPackages(c, out)
	}
}

func maxChildLevel(p viewmodel.NodeView) int {
	highest := 0
	for _, c := range p.Children {
		highest = max(highest, c.Level)
	}
	return highest
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
