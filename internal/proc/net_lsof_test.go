//go:build unix

package proc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

// fakeLsof installs a shell script standing in for lsof.
func fakeLsof(t *testing.T, script string) Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lsof")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))

	table, err := New(Options{Backend: BackendLsof, LsofPath: path})
	require.NoError(t, err)
	require.Equal(t, BackendLsof, table.Name())
	return table
}

func TestLsofConnections(t *testing.T) {
	table := fakeLsof(t, `cat <<'OUT'
p812
f5
n127.0.0.1:8080->127.0.0.1:50000
TST=ESTABLISHED
OUT
`)
	recs := collect(t, table)
	require.Len(t, recs, 1)
	assert.Equal(t, model.OwnerHandle(812), recs[0].Owner)
}

func TestLsofNoMatchWithWarnings(t *testing.T) {
	table := fakeLsof(t, `echo "lsof: WARNING: can't stat() fuse.gvfsd-fuse file system /run/user/1000/gvfs" >&2
echo "      Output information may be incomplete." >&2
exit 1
`)
	assert.Empty(t, collect(t, table))

	for _, err := range table.ProcessHandles(context.Background()) {
		require.NoError(t, err)
	}
}

func TestLsofPartialOutput(t *testing.T) {
	table := fakeLsof(t, `printf 'p913\nf3\nn[::1]:9090->[::1]:50001\n'
echo "lsof: WARNING: can't stat() nfs file system /mnt" >&2
exit 1
`)
	recs := collect(t, table)
	require.Len(t, recs, 1)
	assert.Equal(t, ep("[::1]:9090"), recs[0].Local)
}

func TestLsofFailure(t *testing.T) {
	tests := []struct {
		name   string
		script string
		kind   model.ErrorKind
	}{
		{"permission denied", "echo 'lsof: /dev/kmem: Permission denied' >&2\nexit 2\n", model.KindPermissionDenied},
		{"other", "echo 'lsof: unsupported' >&2\nexit 3\n", model.KindSystemUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := fakeLsof(t, tt.script)
			for _, err := range table.Connections(context.Background()) {
				require.Error(t, err)
				assert.Equal(t, tt.kind, model.KindOf(err))
			}
		})
	}
}

func TestLsofScoped(t *testing.T) {
	table := fakeLsof(t, "exit 0\n")
	assert.Equal(t, os.Geteuid() != 0, IsScoped(table))
}
