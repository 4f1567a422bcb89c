// Package remotepid finds the local process on the other end of a TCP
// connection.
//
// A query takes the connection as seen from one side (local, remote) and
// answers with the PID owning the remote side. It only succeeds when that
// side lives on this host; otherwise the error has kind ConnectionNotFound
// and CodeOf reports CodeEndpointNotLocal.
//
// Every query reads the kernel tables from scratch. Two details are best
// effort because the tables change while they are read: if several table
// rows match the 4-tuple the first one is used, and if several processes
// hold the matched socket (for example after fork) the lowest enumerated
// PID is returned.
package remotepid

import (
	"context"
	"net"
	"net/netip"

	"go.uber.org/zap"

	"github.com/pranshuparmar/remotepid/internal/addr"
	"github.com/pranshuparmar/remotepid/internal/config"
	"github.com/pranshuparmar/remotepid/internal/pipeline"
	procpkg "github.com/pranshuparmar/remotepid/internal/proc"
	"github.com/pranshuparmar/remotepid/pkg/model"
)

// InvalidPID is returned together with an error.
const InvalidPID uint32 = 0xFFFFFFFF

// Resolver is safe for concurrent use. It holds no state between queries.
type Resolver struct {
	table  procpkg.Table
	logger *zap.Logger
}

type options struct {
	cfg    config.Config
	table  procpkg.Table
	logger *zap.Logger
}

type Option func(*options)

func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithTable replaces the OS backend, mostly for tests.
func WithTable(t procpkg.Table) Option {
	return func(o *options) { o.table = t }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func New(opts ...Option) (*Resolver, error) {
	o := options{cfg: config.Default(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	table := o.table
	if table == nil {
		if err := o.cfg.Validate(); err != nil {
			return nil, model.Wrap(model.KindInvalidInput, err, "config")
		}
		tableOpts := o.cfg.TableOptions()
		tableOpts.Logger = o.logger
		t, err := procpkg.New(tableOpts)
		if err != nil {
			return nil, err
		}
		table = t
	}
	return &Resolver{table: table, logger: o.logger}, nil
}

func (r *Resolver) Backend() string { return r.table.Name() }

// Connections returns a fresh snapshot of the host TCP table without LISTEN
// sockets.
func (r *Resolver) Connections(ctx context.Context) ([]model.ConnectionRecord, error) {
	var out []model.ConnectionRecord
	for rec, err := range r.table.Connections(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Resolver) config() pipeline.ResolveConfig {
	return pipeline.ResolveConfig{Table: r.table, Logger: r.logger}
}

// ResolveAddr parses numeric "host:port" endpoints and resolves the remote
// side's PID.
func (r *Resolver) ResolveAddr(ctx context.Context, local, remote string) (uint32, error) {
	l, err := addr.Parse(local)
	if err != nil {
		return InvalidPID, err
	}
	rm, err := addr.Parse(remote)
	if err != nil {
		return InvalidPID, err
	}
	return r.resolve(ctx, l, rm)
}

func (r *Resolver) ResolveAddrPort(ctx context.Context, local, remote netip.AddrPort) (uint32, error) {
	l, err := addr.FromAddrPort(local)
	if err != nil {
		return InvalidPID, err
	}
	rm, err := addr.FromAddrPort(remote)
	if err != nil {
		return InvalidPID, err
	}
	return r.resolve(ctx, l, rm)
}

// ResolveConn resolves the peer of an established connection such as a
// *net.TCPConn.
func (r *Resolver) ResolveConn(ctx context.Context, conn net.Conn) (uint32, error) {
	if conn == nil {
		return InvalidPID, model.Errorf(model.KindInvalidInput, "nil connection")
	}
	l, err := addr.FromNetAddr(conn.LocalAddr())
	if err != nil {
		return InvalidPID, err
	}
	rm, err := addr.FromNetAddr(conn.RemoteAddr())
	if err != nil {
		return InvalidPID, err
	}
	return r.resolve(ctx, l, rm)
}

// ResolveDescriptor resolves the peer of an open socket descriptor (a SOCKET
// handle on windows). The descriptor is only inspected, never closed.
func (r *Resolver) ResolveDescriptor(ctx context.Context, fd uintptr) (uint32, error) {
	pid, err := pipeline.ResolveDescriptor(ctx, r.config(), fd)
	if err != nil {
		return InvalidPID, err
	}
	return pid, nil
}

func (r *Resolver) resolve(ctx context.Context, local, remote model.Endpoint) (uint32, error) {
	pid, err := pipeline.ResolveAddrPair(ctx, r.config(), local, remote)
	if err != nil {
		return InvalidPID, err
	}
	return pid, nil
}
