package owner

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

type entry struct {
	ph  model.ProcessHandle
	err error
}

func handles(entries ...entry) iter.Seq2[model.ProcessHandle, error] {
	return func(yield func(model.ProcessHandle, error) bool) {
		for _, e := range entries {
			if !yield(e.ph, e.err) {
				return
			}
		}
	}
}

func h(pid uint32, handle model.OwnerHandle) entry {
	return entry{ph: model.ProcessHandle{PID: pid, Handle: handle}}
}

func TestResolve(t *testing.T) {
	pid, err := Resolve(handles(h(1, 10), h(2, 20), h(3, 30)), 20)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), pid)
}

func TestResolveFirstMatchWins(t *testing.T) {
	// a socket shared with a forked child shows up in both fd tables
	pid, err := Resolve(handles(h(100, 5), h(200, 5)), 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), pid)
}

func TestResolveNotFound(t *testing.T) {
	_, err := Resolve(handles(h(1, 10)), 99)
	require.Error(t, err)
	assert.Equal(t, model.KindOwnerNotFound, model.KindOf(err))
}

func TestResolvePermissionDenied(t *testing.T) {
	denied := entry{ph: model.ProcessHandle{PID: 4}, err: model.Errorf(model.KindPermissionDenied, "read fd table of pid 4")}

	_, err := Resolve(handles(h(1, 10), denied, h(5, 50)), 99)
	require.Error(t, err)
	assert.Equal(t, model.KindPermissionDenied, model.KindOf(err))

	// a match after an unreadable table still wins
	pid, err := Resolve(handles(denied, h(5, 50)), 50)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), pid)
}

func TestResolveFatalError(t *testing.T) {
	fatal := entry{err: model.Errorf(model.KindSystemUnavailable, "list processes")}
	_, err := Resolve(handles(fatal), 1)
	require.Error(t, err)
	assert.Equal(t, model.KindSystemUnavailable, model.KindOf(err))
}

func TestResolveHiddenOwner(t *testing.T) {
	// a process handle of 0 must never satisfy a hidden owner
	_, err := Resolve(handles(h(0, 0), h(1, 10)), model.OwnerHidden)
	require.Error(t, err)
	assert.Equal(t, model.KindPermissionDenied, model.KindOf(err))
}
