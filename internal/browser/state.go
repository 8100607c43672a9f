package browser

import "time"

// State describes the lifecycle of the managed browser session.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateStarting      State = "starting"
	StateReady         State = "ready"
	StateDegraded      State = "degraded"
	StateShuttingDown  State = "shutting_down"
	StateTerminated    State = "terminated"
)

func (s State) String() string {
	if s == "" {
		return string(StateUninitialized)
	}
	return string(s)
}

// Health is a point-in-time snapshot of the session manager.
type Health struct {
	State       State     `json:"state"`
	Ready       bool      `json:"ready"`
	Detail      string    `json:"detail,omitempty"`
	LastRefresh time.Time `json:"last_refresh,omitzero"`
	CookieFile  string    `json:"cookie_file"`
	Reattaches  int       `json:"reattaches"`
}
