// Package owner maps a connection's owner handle to a PID.
package owner

import (
	"iter"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

// Resolve returns the PID of the first process, in enumeration order, whose
// handle table contains h. Handles could alias across processes in a racing
// table, so the answer is best effort and not checked for uniqueness.
//
// Error values yielded alongside a PID are per-process failures and do not
// stop the scan. If nothing matches and any of them was a permission
// failure, the result is PermissionDenied rather than OwnerNotFound, since
// the owner may be hidden in a table we could not read. A record whose owner
// is model.OwnerHidden is PermissionDenied without scanning.
func Resolve(handles iter.Seq2[model.ProcessHandle, error], h model.OwnerHandle) (uint32, error) {
	if h == model.OwnerHidden {
		return 0, model.Errorf(model.KindPermissionDenied, "owner of connection not visible")
	}

	var denied error
	var last error

	for ph, err := range handles {
		if err != nil {
			if model.KindOf(err) == model.KindPermissionDenied {
				if denied == nil {
					denied = err
				}
				continue
			}
			last = err
			continue
		}
		if ph.Handle == h {
			return ph.PID, nil
		}
	}

	switch {
	case last != nil:
		return 0, last
	case denied != nil:
		return 0, model.Wrap(model.KindPermissionDenied, denied, "owner of handle %d not visible", h)
	}
	return 0, model.Errorf(model.KindOwnerNotFound, "no process holds handle %d", h)
}
