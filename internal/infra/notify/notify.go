// Package notify implements the toast-style notification surface on a
// terminal writer.
package notify

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/okatsu/habitask/internal/domain"
)

// Ensure Writer implements domain.Notifier.
var _ domain.Notifier = (*Writer)(nil)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Writer prints advisory messages to the given writer, usually stderr.
// Messages never block; habit scheduling is a background concern relative
// to the user's current task.
type Writer struct {
	out io.Writer
}

// New creates a Writer.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Success prints a success notice.
func (w *Writer) Success(msg string) {
	fmt.Fprintln(w.out, successStyle.Render("✓ "+msg))
}

// Info prints an informational notice.
func (w *Writer) Info(msg string) {
	fmt.Fprintln(w.out, infoStyle.Render("• "+msg))
}

// Error prints an error notice.
func (w *Writer) Error(msg string) {
	fmt.Fprintln(w.out, errorStyle.Render("✗ "+msg))
}
