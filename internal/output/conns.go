package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

var headerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#5f5fd7")). // Purple/Blue
	Bold(true)

var connHeaders = []string{"LOCAL", "REMOTE", "STATE", "OWNER", "UID"}

// RenderConnections prints a snapshot as an aligned table. OWNER is the
// backend's handle: a socket inode for procfs, a PID otherwise.
func RenderConnections(w io.Writer, recs []model.ConnectionRecord, colorEnabled bool) {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			r.Local.String(),
			r.Remote.String(),
			r.State.String(),
			fmt.Sprint(r.Owner),
			fmt.Sprint(r.UID),
		})
	}

	widths := make([]int, len(connHeaders))
	for i, h := range connHeaders {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string) string {
		var b strings.Builder
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell)))
		}
		return b.String()
	}

	fmt.Fprintln(w, paint(headerStyle, line(connHeaders), colorEnabled))
	for _, row := range rows {
		fmt.Fprintln(w, line(row))
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, paint(dimStyle, "no connections", colorEnabled))
	}
}
