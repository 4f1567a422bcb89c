//go:build linux

package proc

import (
	"cmp"
	"context"
	"errors"
	"io/fs"
	"iter"
	"net"
	"net/netip"
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/procfs"
	"go.uber.org/zap"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

const defaultBackend = BackendProcfs

// procfsTable reads /proc/net/tcp{,6} and joins socket inodes against the
// /proc/<pid>/fd symlinks.
type procfsTable struct {
	fs     procfs.FS
	root   string
	logger *zap.Logger
}

func newProcfsTable(root string, logger *zap.Logger) (Table, error) {
	if root == "" {
		root = procfs.DefaultMountPoint
	}
	pfs, err := procfs.NewFS(root)
	if err != nil {
		return nil, classify(err, "open proc filesystem %s", root)
	}
	return &procfsTable{fs: pfs, root: root, logger: logger}, nil
}

func (t *procfsTable) Name() string { return BackendProcfs }

type socketLine struct {
	local, remote      net.IP
	localPort, remPort uint64
	state, uid, inode  uint64
}

func (t *procfsTable) readTables() ([]socketLine, error) {
	var lines []socketLine
	missing := 0

	for _, file := range []string{"net/tcp", "net/tcp6"} {
		var tab procfs.NetTCP
		var err error
		if file == "net/tcp" {
			tab, err = t.fs.NetTCP()
		} else {
			tab, err = t.fs.NetTCP6()
		}
		if errors.Is(err, fs.ErrNotExist) {
			// tcp6 is absent when IPv6 is disabled
			missing++
			continue
		}
		if err != nil {
			return nil, classify(err, "read %s/%s", t.root, file)
		}
		for _, l := range tab {
			lines = append(lines, socketLine{
				local:     l.LocalAddr,
				remote:    l.RemAddr,
				localPort: l.LocalPort,
				remPort:   l.RemPort,
				state:     l.St,
				uid:       l.UID,
				inode:     l.Inode,
			})
		}
	}

	if missing == 2 {
		return nil, model.Errorf(model.KindSystemUnavailable, "no tcp tables under %s/net", t.root)
	}
	return lines, nil
}

func (t *procfsTable) Connections(ctx context.Context) iter.Seq2[model.ConnectionRecord, error] {
	return func(yield func(model.ConnectionRecord, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(model.ConnectionRecord{}, err)
			return
		}

		lines, err := t.readTables()
		if err != nil {
			yield(model.ConnectionRecord{}, err)
			return
		}
		t.logger.Debug("read tcp tables", zap.Int("entries", len(lines)))

		for _, l := range lines {
			rec, ok := l.record()
			if !ok {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (l socketLine) record() (model.ConnectionRecord, bool) {
	state := model.TCPState(l.state)
	// inode 0 means the socket is no longer attached to a file (TIME_WAIT and
	// friends), so nothing can own it.
	if state == model.StateListen || l.inode == 0 {
		return model.ConnectionRecord{}, false
	}
	local, ok1 := netip.AddrFromSlice(l.local)
	remote, ok2 := netip.AddrFromSlice(l.remote)
	if !ok1 || !ok2 || l.localPort > 0xffff || l.remPort > 0xffff {
		return model.ConnectionRecord{}, false
	}
	return model.ConnectionRecord{
		Local:  model.NewEndpoint(local, uint16(l.localPort)),
		Remote: model.NewEndpoint(remote, uint16(l.remPort)),
		State:  state,
		Owner:  model.OwnerHandle(l.inode),
		UID:    uint32(l.uid),
	}, true
}

func (t *procfsTable) ProcessHandles(ctx context.Context) iter.Seq2[model.ProcessHandle, error] {
	return func(yield func(model.ProcessHandle, error) bool) {
		procs, err := t.fs.AllProcs()
		if err != nil {
			yield(model.ProcessHandle{}, classify(err, "list processes under %s", t.root))
			return
		}
		slices.SortFunc(procs, func(a, b procfs.Proc) int { return cmp.Compare(a.PID, b.PID) })
		t.logger.Debug("enumerating process fd tables", zap.Int("processes", len(procs)))

		for _, p := range procs {
			if err := ctx.Err(); err != nil {
				yield(model.ProcessHandle{}, err)
				return
			}

			targets, err := p.FileDescriptorTargets()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					// exited since AllProcs
					continue
				}
				if !yield(model.ProcessHandle{PID: uint32(p.PID)}, classify(err, "read fd table of pid %d", p.PID)) {
					return
				}
				continue
			}

			for _, target := range targets {
				inode, ok := socketInode(target)
				if !ok {
					continue
				}
				if !yield(model.ProcessHandle{PID: uint32(p.PID), Handle: model.OwnerHandle(inode)}, nil) {
					return
				}
			}
		}
	}
}

// socketInode extracts N from a "socket:[N]" fd link target.
func socketInode(target string) (uint64, bool) {
	if !strings.HasPrefix(target, "socket:[") || !strings.HasSuffix(target, "]") {
		return 0, false
	}
	inode, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(target, "socket:["), "]"), 10, 64)
	if err != nil {
		return 0, false
	}
	return inode, true
}
