package cmd

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Iron-Ham/agentteam/internal/util"
)

var statusStyles = map[string]lipgloss.Style{
	"pending":     lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	"in_progress": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	"completed":   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	"blocked":     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	"active":      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	"idle":        lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	"shutdown":    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	"lead":        lipgloss.NewStyle().Bold(true),
}

func wantJSON() bool {
	return viper.GetBool("json")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// terminal reports whether w is an interactive terminal.
func terminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// paint colors a status word when writing to a terminal.
func paint(w io.Writer, s string) string {
	style, ok := statusStyles[s]
	if !ok || !terminal(w) {
		return s
	}
	return style.Render(s)
}

// textWidth is the column budget for free text such as titles and message
// bodies. Piped output is never truncated.
func textWidth(w io.Writer, reserved int) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return max(width-reserved, 20)
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if terminal(w) {
		tw.SetStyle(table.StyleRounded)
	}
	return tw
}

func cell(s string, width int) string {
	return util.Cell(s, width)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
