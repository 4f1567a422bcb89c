// Package match locates one TCP 4-tuple in a connection table snapshot.
package match

import (
	"iter"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

// Find returns the first eligible record whose local and remote endpoints
// equal the given ones. The 4-tuple is unique per host for a well formed
// connection; if the table still reports duplicates, enumeration order
// decides. That is a best-effort choice, not a guarantee.
//
// A read error from the table ends the scan and is returned unchanged.
func Find(records iter.Seq2[model.ConnectionRecord, error], local, remote model.Endpoint) (model.ConnectionRecord, error) {
	local = model.NewEndpoint(local.Addr, local.Port)
	remote = model.NewEndpoint(remote.Addr, remote.Port)

	for rec, err := range records {
		if err != nil {
			return model.ConnectionRecord{}, err
		}
		if Matches(rec, local, remote) {
			return rec, nil
		}
	}
	return model.ConnectionRecord{}, model.Errorf(model.KindConnectionNotFound,
		"endpoint not local: no connection %s -> %s on this host", local, remote)
}

// Matches compares normalized endpoints and requires a state that can still
// be owned by a process.
func Matches(rec model.ConnectionRecord, local, remote model.Endpoint) bool {
	if !rec.State.Eligible() {
		return false
	}
	return model.NewEndpoint(rec.Local.Addr, rec.Local.Port) == local &&
		model.NewEndpoint(rec.Remote.Addr, rec.Remote.Port) == remote
}
