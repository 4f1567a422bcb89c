package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

// Width is the column long error descriptions wrap at.
const Width = 80

var (
	pidStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22aa22")).Bold(true) // Green
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#af87ff"))            // Purple
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))            // Dimmed Gray
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f"))            // Soft red
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaf5f"))            // Orange-amber
)

func paint(s lipgloss.Style, text string, colorEnabled bool) string {
	if !colorEnabled {
		return text
	}
	return s.Render(text)
}

// RenderShort prints one line for a successful query, or the code and the
// wrapped description for a failed one.
//
//	127.0.0.1:50000 → 127.0.0.1:8080  nginx (pid 812)
func RenderShort(w io.Writer, r model.Result, colorEnabled bool) {
	arrow := paint(dimStyle, "→", colorEnabled)

	if r.OK() {
		name := r.Process
		if name == "" {
			name = "?"
		}
		fmt.Fprintf(w, "%s %s %s  %s (%s)\n",
			r.Local, arrow, r.Remote,
			paint(nameStyle, name, colorEnabled),
			paint(pidStyle, fmt.Sprintf("pid %d", r.PID), colorEnabled))
		return
	}

	style := errorStyle
	label := "error"
	if r.Code == 0x01 {
		style = warnStyle
		label = "not local"
	}
	fmt.Fprintf(w, "%s %s %s  %s\n", r.Local, arrow, r.Remote,
		paint(style, fmt.Sprintf("%s (code 0x%02X)", label, r.Code), colorEnabled))
	if r.Error != "" {
		desc := wrap.String(wordwrap.String(r.Error, Width-2), Width-2)
		fmt.Fprintln(w, paint(dimStyle, lipgloss.NewStyle().PaddingLeft(2).Render(desc), colorEnabled))
	}
}
