//go:build !linux

package proc

import (
	"go.uber.org/zap"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

const defaultBackend = BackendGopsutil

func newProcfsTable(root string, _ *zap.Logger) (Table, error) {
	return nil, model.Errorf(model.KindSystemUnavailable, "procfs backend (%s) is only available on linux", root)
}
