package remotepid

import (
	"context"
	"net"
	"strings"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

// Code is the collapsed error code of the last call made through a Caller.
type Code uint8

const (
	CodeNoError          Code = 0x00
	CodeEndpointNotLocal Code = 0x01
	CodeOther            Code = 0xFF
)

func (c Code) String() string {
	switch c {
	case CodeNoError:
		return "no error"
	case CodeEndpointNotLocal:
		return "endpoint not local"
	}
	return "other error"
}

// CodeOf collapses an error into its public code.
func CodeOf(err error) Code {
	switch model.KindOf(err) {
	case model.KindNone:
		return CodeNoError
	case model.KindConnectionNotFound:
		return CodeEndpointNotLocal
	}
	return CodeOther
}

// Caller exposes the resolver through an error-code interface: each call
// returns only a PID and records its outcome in the Caller, where ErrorCode
// and ErrorDescription read it back.
//
// A Caller is the error cell of one goroutine. It must not be shared; give
// every goroutine its own with Resolver.NewCaller.
type Caller struct {
	r    *Resolver
	ctx  context.Context
	slot slot
}

func (r *Resolver) NewCaller() *Caller {
	return &Caller{r: r, ctx: context.Background()}
}

// WithContext returns a Caller whose queries use ctx. The error cell is not
// shared with c.
func (c *Caller) WithContext(ctx context.Context) *Caller {
	return &Caller{r: c.r, ctx: ctx}
}

// ErrorCode returns the code recorded by the last call. It does not clear it.
func (c *Caller) ErrorCode() Code {
	return c.slot.code
}

// ErrorDescription returns the message recorded by the last call, or false
// when that call succeeded.
func (c *Caller) ErrorDescription() (string, bool) {
	if !c.slot.set {
		return "", false
	}
	return c.slot.desc, true
}

// Err returns the full error of the last call, or nil.
func (c *Caller) Err() error {
	return c.slot.err
}

// PIDByAddress returns InvalidPID with the error recorded on failure. The
// PID is only meaningful when ErrorCode returns CodeNoError.
func (c *Caller) PIDByAddress(local, remote string) uint32 {
	c.slot.reset()
	pid, err := c.r.ResolveAddr(c.ctx, local, remote)
	return c.finish(pid, err)
}

func (c *Caller) PIDByDescriptor(fd uintptr) uint32 {
	c.slot.reset()
	pid, err := c.r.ResolveDescriptor(c.ctx, fd)
	return c.finish(pid, err)
}

func (c *Caller) PIDByConn(conn net.Conn) uint32 {
	c.slot.reset()
	pid, err := c.r.ResolveConn(c.ctx, conn)
	return c.finish(pid, err)
}

func (c *Caller) finish(pid uint32, err error) uint32 {
	if err != nil {
		c.slot.fail(err)
		return InvalidPID
	}
	return pid
}

// slot moves from clear to set once per call; later failures in the same
// call do not overwrite the first.
type slot struct {
	set  bool
	code Code
	desc string
	err  error
}

func (s *slot) reset() {
	*s = slot{}
}

func (s *slot) fail(err error) {
	if s.set || err == nil {
		return
	}
	s.set = true
	s.err = err
	s.code = CodeOf(err)
	if s.code == CodeNoError {
		s.code = CodeOther
	}
	// descriptions end up in C strings, which cannot hold NUL
	s.desc = strings.ReplaceAll(err.Error(), "\x00", "\uFFFD")
}
