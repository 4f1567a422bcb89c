package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/pranshuparmar/remotepid/internal/match"
	"github.com/pranshuparmar/remotepid/internal/owner"
	procpkg "github.com/pranshuparmar/remotepid/internal/proc"
	"github.com/pranshuparmar/remotepid/pkg/model"
)

type ResolveConfig struct {
	Table  procpkg.Table
	Logger *zap.Logger
}

// ResolveAddrPair returns the PID owning the remote side of the connection
// local -> remote. That socket appears in the host table with the tuple
// reversed, so the lookup is done on the peer view.
func ResolveAddrPair(ctx context.Context, cfg ResolveConfig, local, remote model.Endpoint) (uint32, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if !local.IsValid() || !remote.IsValid() {
		return 0, model.Errorf(model.KindInvalidInput, "incomplete address pair %s -> %s", local, remote)
	}

	rec, err := match.Find(cfg.Table.Connections(ctx), remote, local)
	if err != nil {
		logger.Debug("no matching connection",
			zap.Stringer("local", local), zap.Stringer("remote", remote), zap.Error(err))
		// a table limited to visible processes cannot tell "not local" from
		// "owned by someone else"
		if model.KindOf(err) == model.KindConnectionNotFound && procpkg.IsScoped(cfg.Table) {
			return 0, model.Errorf(model.KindPermissionDenied,
				"connection %s -> %s not visible without privilege (backend %s)", local, remote, cfg.Table.Name())
		}
		return 0, err
	}
	logger.Debug("matched connection", zap.Stringer("record", rec), zap.String("backend", cfg.Table.Name()))

	pid, err := owner.Resolve(cfg.Table.ProcessHandles(ctx), rec.Owner)
	if err != nil {
		logger.Debug("owner lookup failed", zap.Uint64("handle", uint64(rec.Owner)), zap.Error(err))
		return 0, err
	}
	logger.Debug("resolved owner", zap.Uint32("pid", pid))
	return pid, nil
}

// ResolveDescriptor derives the address pair from an open socket and then
// resolves it like ResolveAddrPair.
func ResolveDescriptor(ctx context.Context, cfg ResolveConfig, fd uintptr) (uint32, error) {
	local, remote, err := procpkg.SocketEndpoints(fd)
	if err != nil {
		return 0, err
	}
	return ResolveAddrPair(ctx, cfg, local, remote)
}
