package proc

import (
	"context"
	"iter"
	"net/netip"
	"runtime"

	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

// gopsutilTable uses the platform connection table that reports the owning
// PID directly (GetExtendedTcpTable on windows, lsof on darwin, sockstat on
// freebsd). The owner handle is that PID, and the process handle table is
// the list of visible PIDs.
type gopsutilTable struct {
	logger *zap.Logger
}

func newGopsutilTable(logger *zap.Logger) Table {
	return &gopsutilTable{logger: logger}
}

func (t *gopsutilTable) Name() string { return BackendGopsutil }

// Scoped follows lsof on darwin, where gopsutil reads connections through it.
func (t *gopsutilTable) Scoped() bool {
	return runtime.GOOS == "darwin" && unprivileged()
}

func (t *gopsutilTable) Connections(ctx context.Context) iter.Seq2[model.ConnectionRecord, error] {
	return func(yield func(model.ConnectionRecord, error) bool) {
		conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
		if err != nil {
			yield(model.ConnectionRecord{}, classify(err, "read tcp connections"))
			return
		}
		t.logger.Debug("read tcp connections", zap.Int("entries", len(conns)))

		for _, c := range conns {
			rec, ok := connectionRecord(c)
			if !ok {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func connectionRecord(c gnet.ConnectionStat) (model.ConnectionRecord, bool) {
	state := model.ParseTCPState(c.Status)
	if state == model.StateListen {
		return model.ConnectionRecord{}, false
	}
	local, err := netip.ParseAddr(c.Laddr.IP)
	if err != nil {
		return model.ConnectionRecord{}, false
	}
	remote, err := netip.ParseAddr(c.Raddr.IP)
	if err != nil {
		return model.ConnectionRecord{}, false
	}
	if c.Laddr.Port > 0xffff || c.Raddr.Port > 0xffff || c.Pid < 0 {
		return model.ConnectionRecord{}, false
	}

	// Pid 0 is gopsutil's "owner not visible"
	owner := model.OwnerHidden
	if c.Pid > 0 {
		owner = model.OwnerHandle(c.Pid)
	}
	rec := model.ConnectionRecord{
		Local:  model.NewEndpoint(local, uint16(c.Laddr.Port)),
		Remote: model.NewEndpoint(remote, uint16(c.Raddr.Port)),
		State:  state,
		Owner:  owner,
	}
	if len(c.Uids) > 0 && c.Uids[0] >= 0 {
		rec.UID = uint32(c.Uids[0])
	}
	return rec, true
}

func (t *gopsutilTable) ProcessHandles(ctx context.Context) iter.Seq2[model.ProcessHandle, error] {
	return func(yield func(model.ProcessHandle, error) bool) {
		pids, err := process.PidsWithContext(ctx)
		if err != nil {
			yield(model.ProcessHandle{}, classify(err, "list processes"))
			return
		}
		for _, pid := range pids {
			// 0 is the idle process on windows and kernel_task on darwin
			if pid <= 0 {
				continue
			}
			if !yield(model.ProcessHandle{PID: uint32(pid), Handle: model.OwnerHandle(pid)}, nil) {
				return
			}
		}
	}
}
