package mirror

import (
	"time"
)

// Outcome describes what happened to a single entry during a pass.
type Outcome int

const (
	// CopiedDirectory means the entire directory tree was copied.
	CopiedDirectory Outcome = iota + 1

	// CopiedFile means the file contents and metadata were copied.
	CopiedFile

	// SkippedExisting means the destination already had an entry with the
	// same name, so nothing was written.
	SkippedExisting

	// Failed means the copy was attempted but returned an error. The
	// destination may contain part of the entry.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case CopiedDirectory:
		return "copied-directory"
	case CopiedFile:
		return "copied-file"
	case SkippedExisting:
		return "skipped-existing"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Copied returns whether the outcome represents a successful copy.
func (o Outcome) Copied() bool {
	return o == CopiedDirectory || o == CopiedFile
}

// Entry is a direct child of the source directory.
type Entry struct {
	Name            string
	SourcePath      string
	DestinationPath string

	// IsDir is whether the source entry is a directory, after following
	// symlinks.
	IsDir bool
}

// Result is the outcome of processing one Entry.
type Result struct {
	Entry
	Outcome Outcome

	// Err is only set when Outcome is Failed.
	Err error

	// Bytes is the number of file bytes written for the entry. For a
	// directory, it's the sum over every file in the tree.
	Bytes int64

	Started  time.Time
	Finished time.Time
}

// Elapsed returns how long processing the entry took.
func (r Result) Elapsed() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Report summarizes a mirror pass.
type Report struct {
	Source      string
	Destination string

	// DestinationCreated is true if the destination directory didn't exist
	// and was created by the pass.
	DestinationCreated bool

	// Results contains one Result per processed entry, in processing order.
	Results []Result
}

// Copied returns the number of entries that were successfully copied.
func (r Report) Copied() (n int) {
	for _, result := range r.Results {
		if result.Outcome.Copied() {
			n++
		}
	}
	return n
}

// Skipped returns the number of entries that already existed in the
// destination.
func (r Report) Skipped() (n int) {
	for _, result := range r.Results {
		if result.Outcome == SkippedExisting {
			n++
		}
	}
	return n
}

// Failures returns the results of the entries that failed to copy.
func (r Report) Failures() (failures []Result) {
	for _, result := range r.Results {
		if result.Outcome == Failed {
			failures = append(failures, result)
		}
	}
	return failures
}

// Bytes returns the total number of bytes written by successful copies.
func (r Report) Bytes() (n int64) {
	for _, result := range r.Results {
		if result.Outcome.Copied() {
			n += result.Bytes
		}
	}
	return n
}
