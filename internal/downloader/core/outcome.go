package core

// Outcome is the terminal state of one target within a run.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeCompleted
	OutcomeVerified
	OutcomeChecksumMismatch
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeCompleted:
		return "completed"
	case OutcomeVerified:
		return "verified"
	case OutcomeChecksumMismatch:
		return "checksum-mismatch"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports what happened to a target.
type Result struct {
	Target  Target
	Path    string
	Outcome Outcome
	// Offset is the number of bytes already on disk when the transfer began.
	Offset int64
	// Written is the number of bytes written during this run.
	Written int64
	Err     error
}
