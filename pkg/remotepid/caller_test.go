package remotepid

import (
	"context"
	"errors"
	"iter"
	"net"
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

type staticTable struct {
	conns   []model.ConnectionRecord
	handles []model.ProcessHandle
	connErr error
}

func (s *staticTable) Name() string { return "static" }

func (s *staticTable) Connections(context.Context) iter.Seq2[model.ConnectionRecord, error] {
	return func(yield func(model.ConnectionRecord, error) bool) {
		if s.connErr != nil {
			yield(model.ConnectionRecord{}, s.connErr)
			return
		}
		for _, c := range s.conns {
			if !yield(c, nil) {
				return
			}
		}
	}
}

func (s *staticTable) ProcessHandles(context.Context) iter.Seq2[model.ProcessHandle, error] {
	return func(yield func(model.ProcessHandle, error) bool) {
		for _, h := range s.handles {
			if !yield(h, nil) {
				return
			}
		}
	}
}

func ep(s string) model.Endpoint {
	return model.EndpointFromAddrPort(netip.MustParseAddrPort(s))
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	table := &staticTable{
		conns: []model.ConnectionRecord{
			{Local: ep("127.0.0.1:8080"), Remote: ep("127.0.0.1:50000"), State: model.StateEstablished, Owner: 42},
			{Local: ep("[::1]:9090"), Remote: ep("[::1]:50001"), State: model.StateEstablished, Owner: 43},
			{Local: ep("127.0.0.1:7070"), Remote: ep("127.0.0.1:50002"), State: model.StateEstablished, Owner: 44},
		},
		handles: []model.ProcessHandle{{PID: 1000, Handle: 42}, {PID: 1001, Handle: 43}},
	}
	r, err := New(WithTable(table))
	require.NoError(t, err)
	return r
}

func TestCallerSuccess(t *testing.T) {
	c := newTestResolver(t).NewCaller()

	pid := c.PIDByAddress("127.0.0.1:50000", "127.0.0.1:8080")
	assert.Equal(t, uint32(1000), pid)
	assert.Equal(t, CodeNoError, c.ErrorCode())
	_, ok := c.ErrorDescription()
	assert.False(t, ok)
	assert.NoError(t, c.Err())

	pid = c.PIDByAddress("[::1]:50001", "[::1]:9090")
	assert.Equal(t, uint32(1001), pid)
	assert.Equal(t, CodeNoError, c.ErrorCode())
}

func TestCallerMappedAddresses(t *testing.T) {
	c := newTestResolver(t).NewCaller()

	pid := c.PIDByAddress("::ffff:127.0.0.1:50000", "[::ffff:127.0.0.1]:8080")
	assert.Equal(t, CodeNoError, c.ErrorCode())
	assert.Equal(t, uint32(1000), pid)
}

func TestCallerEndpointNotLocal(t *testing.T) {
	c := newTestResolver(t).NewCaller()

	pid := c.PIDByAddress("127.0.0.1:50000", "10.0.0.1:443")
	assert.Equal(t, InvalidPID, pid)
	assert.Equal(t, CodeEndpointNotLocal, c.ErrorCode())
	desc, ok := c.ErrorDescription()
	require.True(t, ok)
	assert.Contains(t, desc, "endpoint not local")
}

func TestCallerOtherErrors(t *testing.T) {
	tests := []struct {
		name          string
		local, remote string
		kind          model.ErrorKind
	}{
		{"malformed local", "not-an-address", "127.0.0.1:8080", model.KindInvalidInput},
		{"port out of range", "127.0.0.1:99999", "127.0.0.1:8080", model.KindInvalidInput},
		{"hostname", "127.0.0.1:50000", "localhost:8080", model.KindInvalidInput},
		{"owner exited", "127.0.0.1:50002", "127.0.0.1:7070", model.KindOwnerNotFound},
	}

	c := newTestResolver(t).NewCaller()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pid := c.PIDByAddress(tt.local, tt.remote)
			assert.Equal(t, InvalidPID, pid)
			assert.Equal(t, CodeOther, c.ErrorCode())
			desc, ok := c.ErrorDescription()
			require.True(t, ok)
			assert.NotEmpty(t, desc)
			assert.Contains(t, desc, tt.kind.String())
			assert.Equal(t, tt.kind, model.KindOf(c.Err()))
		})
	}
}

func TestCallerResetsOnEveryCall(t *testing.T) {
	c := newTestResolver(t).NewCaller()

	c.PIDByAddress("bogus", "bogus")
	require.Equal(t, CodeOther, c.ErrorCode())

	// accessors do not clear
	assert.Equal(t, CodeOther, c.ErrorCode())
	_, ok := c.ErrorDescription()
	assert.True(t, ok)

	c.PIDByAddress("127.0.0.1:50000", "127.0.0.1:8080")
	assert.Equal(t, CodeNoError, c.ErrorCode())
	_, ok = c.ErrorDescription()
	assert.False(t, ok)
}

func TestCallerPermissionDenied(t *testing.T) {
	table := &staticTable{connErr: model.Errorf(model.KindPermissionDenied, "read /proc/net/tcp")}
	r, err := New(WithTable(table))
	require.NoError(t, err)

	c := r.NewCaller()
	assert.Equal(t, InvalidPID, c.PIDByAddress("127.0.0.1:1", "127.0.0.1:2"))
	assert.Equal(t, CodeOther, c.ErrorCode())
	desc, _ := c.ErrorDescription()
	assert.Contains(t, desc, "permission denied")
}

func TestCallerConn(t *testing.T) {
	c := newTestResolver(t).NewCaller()

	pid := c.PIDByConn(nil)
	assert.Equal(t, InvalidPID, pid)
	assert.Equal(t, CodeOther, c.ErrorCode())

	conn := &fakeConn{
		local:  &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 50000},
		remote: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 8080},
	}
	assert.Equal(t, uint32(1000), c.PIDByConn(conn))
	assert.Equal(t, CodeNoError, c.ErrorCode())
}

func TestSlotKeepsFirstFailure(t *testing.T) {
	var s slot
	first := model.Errorf(model.KindConnectionNotFound, "first")
	s.fail(first)
	s.fail(model.Errorf(model.KindInvalidInput, "second"))

	assert.Equal(t, CodeEndpointNotLocal, s.code)
	assert.Same(t, first, s.err)

	s.reset()
	assert.Equal(t, slot{}, s)
}

func TestSlotReplacesNUL(t *testing.T) {
	var s slot
	s.fail(errors.New("bad\x00byte"))
	assert.Equal(t, "bad\uFFFDbyte", s.desc)
	assert.Equal(t, CodeOther, s.code)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNoError, CodeOf(nil))
	assert.Equal(t, CodeEndpointNotLocal, CodeOf(model.Errorf(model.KindConnectionNotFound, "x")))
	for _, k := range []model.ErrorKind{
		model.KindInvalidInput, model.KindPermissionDenied, model.KindSystemUnavailable,
		model.KindOwnerNotFound, model.KindNotConnected, model.KindInvalidDescriptor,
	} {
		assert.Equal(t, CodeOther, CodeOf(model.Errorf(k, "x")), k.String())
	}
	assert.Equal(t, CodeOther, CodeOf(context.Canceled))
}

func TestCallersAreIndependent(t *testing.T) {
	r := newTestResolver(t)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(fail bool) {
			defer wg.Done()
			c := r.NewCaller()
			for range 50 {
				if fail {
					c.PIDByAddress("127.0.0.1:50000", "10.0.0.1:1")
					assert.Equal(t, CodeEndpointNotLocal, c.ErrorCode())
				} else {
					pid := c.PIDByAddress("127.0.0.1:50000", "127.0.0.1:8080")
					assert.Equal(t, CodeNoError, c.ErrorCode())
					assert.Equal(t, uint32(1000), pid)
				}
			}
		}(i%2 == 0)
	}
	wg.Wait()
}

type fakeConn struct {
	net.Conn
	local, remote net.Addr
}

func (f *fakeConn) LocalAddr() net.Addr  { return f.local }
func (f *fakeConn) RemoteAddr() net.Addr { return f.remote }
