package model

import "fmt"

// ScenarioState tracks a scenario run through its lifecycle. Remote runs map
// the API's job states onto the same enum so history entries read uniformly.
type ScenarioState int

const (
	StatePending ScenarioState = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

var stateNames = map[ScenarioState]string{
	StatePending:   "pending",
	StateRunning:   "running",
	StateCompleted: "completed",
	StateFailed:    "failed",
	StateCancelled: "cancelled",
}

// ParseScenarioState converts a state name back to its enum value.
func ParseScenarioState(name string) (ScenarioState, error) {
	for state, n := range stateNames {
		if n == name {
			return state, nil
		}
	}
	return StatePending, fmt.Errorf("unknown scenario state %q", name)
}

// String implements fmt.Stringer for ScenarioState.
func (s ScenarioState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the state is final.
func (s ScenarioState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}
