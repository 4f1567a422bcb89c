package output

import (
	"encoding/json"

	"github.com/pranshuparmar/remotepid/pkg/model"
)

func ToJSON(r model.Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type connJSON struct {
	Local  string `json:"local"`
	Remote string `json:"remote"`
	State  string `json:"state"`
	Owner  uint64 `json:"owner"`
	UID    uint32 `json:"uid"`
}

func ConnectionsToJSON(recs []model.ConnectionRecord) (string, error) {
	out := make([]connJSON, 0, len(recs))
	for _, r := range recs {
		out = append(out, connJSON{
			Local:  r.Local.String(),
			Remote: r.Remote.String(),
			State:  r.State.String(),
			Owner:  uint64(r.Owner),
			UID:    r.UID,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
