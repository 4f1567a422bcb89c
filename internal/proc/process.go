package proc

import (
	"context"
	"math"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessName returns the command name of pid, or "" when the process is
// gone or not visible. Display only; the lookup races with process exit.
func ProcessName(ctx context.Context, pid uint32) string {
	if pid > math.MaxInt32 {
		return ""
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return ""
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return ""
	}
	return name
}
