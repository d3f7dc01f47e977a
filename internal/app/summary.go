package app

import (
	"unitydl/internal/downloader/core"
	"unitydl/internal/ui"
)

// Summary aggregates the outcomes of every target attempted in a run.
type Summary struct {
	// Releases is the number of releases whose downloads were attempted.
	Releases int
	// SkippedDirs counts releases and modules left out because their
	// directory could not be created.
	SkippedDirs     int
	Transferred     int64
	FailedURLs      []string
	MismatchedPaths []string

	counts map[core.Outcome]int
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{counts: make(map[core.Outcome]int)}
}

// Record adds one target result.
func (s *Summary) Record(res core.Result) {
	s.counts[res.Outcome]++
	s.Transferred += res.Written

	switch res.Outcome {
	case core.OutcomeFailed:
		s.FailedURLs = append(s.FailedURLs, res.Target.URL)
	case core.OutcomeChecksumMismatch:
		s.MismatchedPaths = append(s.MismatchedPaths, res.Path)
	}
}

// Count is the number of targets that ended in o.
func (s *Summary) Count(o core.Outcome) int {
	return s.counts[o]
}

// Total is the number of targets recorded.
func (s *Summary) Total() int {
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return total
}

// Lines renders the summary rows in a fixed order.
func (s *Summary) Lines() []ui.SummaryLine {
	lines := []ui.SummaryLine{
		{Label: "Releases", Count: s.Releases, Kind: ui.LinePlain},
		{Label: "Skipped", Count: s.Count(core.OutcomeSkipped), Kind: ui.LinePlain},
		{Label: "Completed", Count: s.Count(core.OutcomeCompleted), Kind: ui.LineGood},
		{Label: "Verified", Count: s.Count(core.OutcomeVerified), Kind: ui.LineGood},
		{Label: "Checksum mismatch", Count: s.Count(core.OutcomeChecksumMismatch), Kind: ui.LineWarn},
		{Label: "Failed", Count: s.Count(core.OutcomeFailed), Kind: ui.LineBad},
	}
	if s.SkippedDirs > 0 {
		lines = append(lines, ui.SummaryLine{Label: "Directory errors", Count: s.SkippedDirs, Kind: ui.LineBad})
	}
	return lines
}
