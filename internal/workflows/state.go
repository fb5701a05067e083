package workflows

// State is a step of the build state machine.
//
//	Start → Authenticating → AcquiringContent → {Building | Skipped} →
//	Hashing → RecordingProvenance → Done
//
// Any step may move to Failed, which is terminal.
type State int

const (
	StateStart State = iota
	StateAuthenticating
	StateAcquiringContent
	StateBuilding
	StateSkipped
	StateHashing
	StateRecordingProvenance
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateStart:               "start",
	StateAuthenticating:      "authenticating",
	StateAcquiringContent:    "acquiring content",
	StateBuilding:            "building",
	StateSkipped:             "build skipped",
	StateHashing:             "hashing",
	StateRecordingProvenance: "recording provenance",
	StateDone:                "done",
	StateFailed:              "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
