package proc

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"os"
	"slices"

	"go.uber.org/zap"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

const (
	BackendAuto     = "auto"
	BackendProcfs   = "procfs"
	BackendGopsutil = "gopsutil"
	BackendLsof     = "lsof"
)

// Backends lists the names accepted by New.
var Backends = []string{BackendAuto, BackendProcfs, BackendGopsutil, BackendLsof}

// Table enumerates live kernel state. Each call returns a fresh snapshot that
// is read lazily as it is ranged over; nothing is cached between calls.
//
// Connections never yields LISTEN sockets. ProcessHandles may yield non-fatal
// errors (for example one process whose handle table is unreadable) and keep
// going; a fatal error is the last value yielded.
type Table interface {
	Name() string
	Connections(ctx context.Context) iter.Seq2[model.ConnectionRecord, error]
	ProcessHandles(ctx context.Context) iter.Seq2[model.ProcessHandle, error]
}

// Scoped is implemented by tables that only list the sockets of processes
// the caller may inspect.
type Scoped interface {
	// Scoped reports whether rows may currently be missing for lack of
	// privilege.
	Scoped() bool
}

// IsScoped reports whether t may be hiding rows from the current caller.
func IsScoped(t Table) bool {
	s, ok := t.(Scoped)
	return ok && s.Scoped()
}

func unprivileged() bool {
	return os.Geteuid() != 0
}

type Options struct {
	Backend  string
	ProcRoot string
	LsofPath string
	Logger   *zap.Logger
}

// New selects the table implementation once, at startup.
func New(opts Options) (Table, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backend := opts.Backend
	if backend == "" || backend == BackendAuto {
		backend = defaultBackend
	}
	logger.Debug("selected connection table backend", zap.String("backend", backend))

	switch backend {
	case BackendProcfs:
		return newProcfsTable(opts.ProcRoot, logger)
	case BackendGopsutil:
		return newGopsutilTable(logger), nil
	case BackendLsof:
		return newLsofTable(opts.LsofPath, logger)
	}
	return nil, model.Errorf(model.KindInvalidInput, "unknown backend %q (want one of %v)", backend, Backends)
}

func ValidBackend(name string) bool {
	return name == "" || slices.Contains(Backends, name)
}

// classify maps OS errors from reading kernel state onto error kinds.
func classify(err error, format string, args ...any) error {
	var me *model.Error
	switch {
	case errors.As(err, &me):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, fs.ErrPermission):
		return model.Wrap(model.KindPermissionDenied, err, format, args...)
	}
	return model.Wrap(model.KindSystemUnavailable, err, format, args...)
}
