//go:build windows

package proc

import (
	"go.uber.org/zap"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

func newLsofTable(_ string, _ *zap.Logger) (Table, error) {
	return nil, model.Errorf(model.KindSystemUnavailable, "lsof backend is not available on windows")
}
