package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"yakstack/store"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
)

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// renderTasks prints the current stack name and its tasks in order,
// styled only when writing to a terminal.
func renderTasks(w io.Writer, stackName string, tasks []string) {
	header := fmt.Sprintf("Stack: %s", stackName)
	if stdoutIsTerminal(w) {
		header = headerStyle.Render(header)
	}
	_, _ = fmt.Fprintln(w, header)
	for i, task := range tasks {
		_, _ = fmt.Fprintf(w, "%d. %s\n", i, task)
	}
}

// renderStacks prints all stack names, marking the current one.
func renderStacks(w io.Writer, stacks []store.Stack, currentID int64) {
	styled := stdoutIsTerminal(w)
	for _, st := range stacks {
		line := st.Name
		if st.ID == currentID {
			line = "* " + line
			if styled {
				line = currentStyle.Render(line)
			}
		} else {
			line = "  " + line
		}
		_, _ = fmt.Fprintln(w, line)
	}
}
