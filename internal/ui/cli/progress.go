package cli

import (
	"fmt"
	"io"
	"time"

	"structmap/internal/core/errors"

	"github.com/charmbracelet/lipgloss"
)

var (
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	failureStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true)
)

// progress prints "<step> ... finished in Nms" lines for the operator.
type progress struct {
	w     io.Writer
	start time.Time
}

func newProgress(w io.Writer) *progress {
	return &progress{w: w}
}

func (p *progress) Start(step string) {
	fmt.Fprint(p.w, progressStyle.Render(step+" ... "))
	p.start = time.Now()
}

func (p *progress) Done() {
	elapsed := time.Since(p.start).Milliseconds()
	fmt.Fprintln(p.w, progressStyle.Render(fmt.Sprintf("finished in %dms", elapsed)))
}

func (p *progress) Fail() {
	fmt.Fprintln(p.w, failureStyle.Render("failed"))
}

// step runs fn between Start and Done/Fail.
func (p *progress) step(name string, fn func() error) error {
	p.Start(name)
	if err := fn(); err != nil {
		p.Fail()
		return err
	}
	p.Done()
	return nil
}

func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, failureStyle.Render("Error: "+err.Error()))
	if code, ok := errors.CodeOf(err); ok && code == errors.CodeValidationError {
		fmt.Fprintln(w, mutedStyle.Render("Run 'structmap --help' for usage."))
	}
}
