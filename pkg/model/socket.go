package model

import (
	"fmt"
	"strings"
)

// TCPState follows the kernel numbering from include/net/tcp_states.h.
type TCPState uint8

const (
	StateUnknown TCPState = iota
	StateEstablished
	StateSynSent
	StateSynRecv
	StateFinWait1
	StateFinWait2
	StateTimeWait
	StateClose
	StateCloseWait
	StateLastAck
	StateListen
	StateClosing
)

var stateNames = map[TCPState]string{
	StateEstablished: "ESTABLISHED",
	StateSynSent:     "SYN_SENT",
	StateSynRecv:     "SYN_RECV",
	StateFinWait1:    "FIN_WAIT1",
	StateFinWait2:    "FIN_WAIT2",
	StateTimeWait:    "TIME_WAIT",
	StateClose:       "CLOSE",
	StateCloseWait:   "CLOSE_WAIT",
	StateLastAck:     "LAST_ACK",
	StateListen:      "LISTEN",
	StateClosing:     "CLOSING",
}

func (s TCPState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN (%02X)", uint8(s))
}

// Eligible reports whether a socket in this state still has a peer and an
// owning process, so that it may be used for ownership resolution.
func (s TCPState) Eligible() bool {
	switch s {
	case StateEstablished, StateSynRecv, StateFinWait1, StateFinWait2,
		StateCloseWait, StateClosing, StateLastAck:
		return true
	}
	return false
}

// ParseTCPState maps the state names used by netstat, lsof and the Windows
// IP helper ("FIN_WAIT_1", "FINWAIT1", "SYN_RECEIVED", "CLOSED", ...).
func ParseTCPState(name string) TCPState {
	key := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), "_", "")
	switch key {
	case "ESTABLISHED":
		return StateEstablished
	case "SYNSENT":
		return StateSynSent
	case "SYNRECV", "SYNRECEIVED":
		return StateSynRecv
	case "FINWAIT1":
		return StateFinWait1
	case "FINWAIT2":
		return StateFinWait2
	case "TIMEWAIT":
		return StateTimeWait
	case "CLOSE", "CLOSED":
		return StateClose
	case "CLOSEWAIT":
		return StateCloseWait
	case "LASTACK":
		return StateLastAck
	case "LISTEN", "LISTENING":
		return StateListen
	case "CLOSING":
		return StateClosing
	}
	return StateUnknown
}

// OwnerHandle links a connection record to a process handle table entry.
// It is a socket inode on Linux and the owning PID on backends whose kernel
// table already reports it. Only meaningful within one snapshot.
type OwnerHandle uint64

// OwnerHidden marks a record whose owner the backend saw but could not
// identify for this caller. No process handle carries it.
const OwnerHidden OwnerHandle = 0

type ConnectionRecord struct {
	Local  Endpoint
	Remote Endpoint
	State  TCPState
	Owner  OwnerHandle
	UID    uint32
}

func (r ConnectionRecord) String() string {
	return fmt.Sprintf("%s -> %s %s owner=%d", r.Local, r.Remote, r.State, r.Owner)
}

type ProcessHandle struct {
	PID    uint32
	Handle OwnerHandle
}
