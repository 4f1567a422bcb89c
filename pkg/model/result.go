package model

// Result is what the CLI renders for one query.
type Result struct {
	Local   string `json:"local"`
	Remote  string `json:"remote"`
	PID     uint32 `json:"pid,omitempty"`
	Process string `json:"process,omitempty"`
	Code    uint8  `json:"code"`
	Error   string `json:"error,omitempty"`
}

func (r Result) OK() bool {
	return r.Code == 0
}
