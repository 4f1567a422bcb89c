package proc

import (
	"iter"
	"strconv"
	"strings"

	"github.com/pranshuparmar/remotepid/internal/addr"
	"github.com/pranshuparmar/remotepid/pkg/model"
)

// parseLsofFields walks `lsof -F pnT` output:
//
//	p<pid>
//	f<fd>
//	n<local>-><remote>
//	TST=<state>
//	TQR=0
//
// One record is emitted per file set whose name is a connected pair.
func parseLsofFields(out string) iter.Seq[model.ConnectionRecord] {
	return func(yield func(model.ConnectionRecord) bool) {
		var (
			pid     int64 = -1
			name    string
			state   = model.StateUnknown
			pending bool
		)

		flush := func() bool {
			if !pending {
				return true
			}
			pending = false
			rec, ok := lsofRecord(pid, name, state)
			name, state = "", model.StateUnknown
			if !ok {
				return true
			}
			return yield(rec)
		}

		for line := range strings.Lines(out) {
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				continue
			}
			switch line[0] {
			case 'p':
				if !flush() {
					return
				}
				v, err := strconv.ParseInt(line[1:], 10, 64)
				if err != nil {
					v = -1
				}
				pid = v
			case 'f':
				if !flush() {
					return
				}
				pending = true
			case 'n':
				name = line[1:]
				pending = true
			case 'T':
				if s, ok := strings.CutPrefix(line[1:], "ST="); ok {
					state = model.ParseTCPState(s)
				}
			}
		}
		flush()
	}
}

func lsofRecord(pid int64, name string, state model.TCPState) (model.ConnectionRecord, bool) {
	if pid < 0 || pid > 0xffffffff {
		return model.ConnectionRecord{}, false
	}
	localStr, remoteStr, ok := strings.Cut(name, "->")
	if !ok {
		return model.ConnectionRecord{}, false
	}
	local, err := addr.Parse(localStr)
	if err != nil {
		return model.ConnectionRecord{}, false
	}
	remote, err := addr.Parse(remoteStr)
	if err != nil {
		return model.ConnectionRecord{}, false
	}
	if state == model.StateUnknown {
		// lsof omits TST on some kernels; a connected pair is at least established
		state = model.StateEstablished
	}
	if state == model.StateListen {
		return model.ConnectionRecord{}, false
	}
	return model.ConnectionRecord{
		Local:  local,
		Remote: remote,
		State:  state,
		Owner:  model.OwnerHandle(pid),
	}, true
}

// parseLsofPIDs collects the p lines of `lsof -F p` output in order.
func parseLsofPIDs(out string) []uint32 {
	var pids []uint32
	seen := make(map[uint32]bool)
	for line := range strings.Lines(out) {
		line = strings.TrimRight(line, "\r\n")
		if !strings.HasPrefix(line, "p") {
			continue
		}
		v, err := strconv.ParseUint(line[1:], 10, 32)
		if err != nil || seen[uint32(v)] {
			continue
		}
		seen[uint32(v)] = true
		pids = append(pids, uint32(v))
	}
	return pids
}
