package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	coreapp "structmap/internal/core/app"
	"structmap/internal/engine/structure"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)
)

const (
	itemCycle      = "Cyclic Group"
	itemUnresolved = "Unresolved Import"
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	root        string
	list        list.Model
	cycles      int
	unresolved  int
	moduleCount int
	packages    int
	fileCount   int
	maxLevel    int
	lastUpdate  time.Time
	err         error
}

// updateMsg is what the watcher hands the dashboard after every rebuild.
type updateMsg struct {
	items       []list.Item
	cycles      int
	unresolved  int
	moduleCount int
	packages    int
	fileCount   int
	maxLevel    int
	err         error
}

func newUpdateMsg(res *coreapp.Result, err error) updateMsg {
	msg := updateMsg{err: err}
	if res == nil || res.Tree == nil {
		return msg
	}
	msg.fileCount = res.Files
	msg.moduleCount = res.Tree.ModuleCount()
	msg.packages = res.Tree.PackageCount()
	msg.unresolved = res.Tree.UnresolvedCount()
	msg.maxLevel = coreapp.HistoryEntry(res).MaxLevel

	parents := make([]string, 0, len(res.Summary.Cycles))
	for id := range res.Summary.Cycles {
		parents = append(parents, id)
	}
	sort.Strings(parents)
	for _, parent := range parents {
		for _, group := range res.Summary.Cycles[parent] {
			msg.cycles++
			msg.items = append(msg.items, item{
				title: itemCycle,
				desc:  fmt.Sprintf("%s: %s", parent, strings.Join(group, " <-> ")),
			})
		}
	}

	res.Tree.Walk(func(p *structure.Package) {
		for _, m := range p.Modules {
			for _, spec := range m.Unresolved {
				msg.items = append(msg.items, item{
					title: itemUnresolved,
					desc:  fmt.Sprintf("%q in %s", spec, m.ID),
				})
			}
		}
	})
	return msg
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.lastUpdate = time.Now()
		m.err = msg.err
		if msg.err != nil {
			// Keep the last good picture; only the status line changes.
			return m, nil
		}
		m.cycles = msg.cycles
		m.unresolved = msg.unresolved
		m.moduleCount = msg.moduleCount
		m.packages = msg.packages
		m.fileCount = msg.fileCount
		m.maxLevel = msg.maxLevel
		cmd := m.list.SetItems(msg.items)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := mutedStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d modules | %d packages | max level %d",
		m.lastUpdate.Format("15:04:05"), m.fileCount, m.moduleCount, m.packages, m.maxLevel))

	var summary string
	switch {
	case m.err != nil:
		summary = failureStyle.Render("Rebuild failed: " + m.err.Error())
	case m.cycles == 0 && m.unresolved == 0:
		summary = successStyle.Render("Acyclic")
	default:
		summary = fmt.Sprintf("%s | %s",
			failureStyle.Render(fmt.Sprintf("%d Cyclic Groups", m.cycles)),
			progressStyle.Render(fmt.Sprintf("%d Unresolved", m.unresolved)))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Structure Map: "+m.root), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel(root string) model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Findings"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		root:       root,
		list:       l,
		lastUpdate: time.Now(),
	}
}
