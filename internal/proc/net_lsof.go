//go:build !windows

package proc

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

// Only these locations are executed unless a path is configured explicitly.
var trustedLsof = []string{"/usr/sbin/lsof", "/usr/bin/lsof"}

type lsofTable struct {
	path   string
	logger *zap.Logger
}

func newLsofTable(path string, logger *zap.Logger) (Table, error) {
	candidates := trustedLsof
	if path != "" {
		candidates = []string{path}
	}
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return &lsofTable{path: p, logger: logger}, nil
		}
	}
	return nil, model.Errorf(model.KindSystemUnavailable, "lsof binary not found (looked in %s)", strings.Join(candidates, ", "))
}

func (t *lsofTable) Name() string { return BackendLsof }

// Scoped is true unless running as root: lsof skips processes it cannot
// inspect.
func (t *lsofTable) Scoped() bool { return unprivileged() }

// run executes lsof. Exit status 1 means nothing matched or some files could
// not be inspected; either way the output, possibly empty, is the table.
func (t *lsofTable) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, t.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err == nil {
		return string(out), nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr.String())
		if exitErr.ExitCode() == 1 {
			if msg != "" {
				t.logger.Debug("lsof reported warnings", zap.String("stderr", msg))
			}
			return string(out), nil
		}
		if strings.Contains(strings.ToLower(msg), "permission denied") {
			return "", model.Wrap(model.KindPermissionDenied, err, "lsof: %s", msg)
		}
		return "", model.Wrap(model.KindSystemUnavailable, err, "lsof exited with %d: %s", exitErr.ExitCode(), msg)
	}
	return "", classify(err, "run %s", t.path)
}

func (t *lsofTable) Connections(ctx context.Context) iter.Seq2[model.ConnectionRecord, error] {
	return func(yield func(model.ConnectionRecord, error) bool) {
		out, err := t.run(ctx, "-nP", "-iTCP", "-sTCP:^LISTEN", "-F", "pnT")
		if err != nil {
			yield(model.ConnectionRecord{}, err)
			return
		}
		for rec := range parseLsofFields(out) {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (t *lsofTable) ProcessHandles(ctx context.Context) iter.Seq2[model.ProcessHandle, error] {
	return func(yield func(model.ProcessHandle, error) bool) {
		out, err := t.run(ctx, "-nP", "-iTCP", "-F", "p")
		if err != nil {
			yield(model.ProcessHandle{}, err)
			return
		}
		for _, pid := range parseLsofPIDs(out) {
			if !yield(model.ProcessHandle{PID: pid, Handle: model.OwnerHandle(pid)}, nil) {
				return
			}
		}
	}
}
