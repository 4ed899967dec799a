package contracts

import "time"

// Converter converts one file. Implementations must not share mutable state
// between calls so a batch can run them concurrently.
type Converter interface {
	Convert(input, output string) (ConvertResult, error)
}

type ConvertResult struct {
	Width       int
	Height      int
	OutDepth    BitDepth
	Transformed bool
	EmbeddedICC bool
	Checksum    string
}

// BatchJob is created per discovered file and owned by the worker running it.
type BatchJob struct {
	Input    string
	Relative string
	Output   string
}

type OutcomeStatus int

const (
	StatusConverted OutcomeStatus = iota
	StatusSkipped
	StatusFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusConverted:
		return "converted"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

type Outcome struct {
	Job      BatchJob
	Status   OutcomeStatus
	Err      error
	Checksum string
	Elapsed  time.Duration
}
