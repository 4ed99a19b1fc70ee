package mirror

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/copybara/pkg/errors"
)

// hiddenPrefix marks entries that are never mirrored, such as .DS_Store.
const hiddenPrefix = "."

// Options configures a mirror pass.
type Options struct {
	Source      string
	Destination string

	// Delay is how long to wait between entries. The pass doesn't wait after
	// the last entry. Zero or negative disables waiting.
	Delay time.Duration

	// Fs defaults to the OS filesystem.
	Fs afero.Fs

	// Clock defaults to the real clock.
	Clock clockwork.Clock

	// Listener defaults to discarding all notifications.
	Listener Listener
}

// Listener is notified as a pass makes progress. It's called synchronously
// from the pass, so slow listeners slow down the pass.
type Listener interface {
	// DestinationCreated is called if the destination directory didn't
	// exist and was created.
	DestinationCreated(path string)

	// Copying is called right before an entry is copied. It isn't called for
	// entries that are skipped.
	Copying(entry Entry, at time.Time)

	// Finished is called once for every processed entry.
	Finished(result Result)

	// Waiting is called before the pass waits between two entries.
	Waiting(delay time.Duration, resumeAt time.Time)
}

type nopListener struct{}

func (nopListener) DestinationCreated(string)        {}
func (nopListener) Copying(Entry, time.Time)         {}
func (nopListener) Finished(Result)                  {}
func (nopListener) Waiting(time.Duration, time.Time) {}

type pass struct {
	fs       afero.Fs
	clock    clockwork.Clock
	listener Listener
	delay    time.Duration
}

// Mirror copies every visible entry of opts.Source that doesn't exist in
// opts.Destination.
//
// An error is returned if the source doesn't exist (errors.FileNotFound) or
// isn't a directory (errors.NotDirectory), if the destination can't be
// created, or if the context is cancelled. Failures to copy individual
// entries don't stop the pass and aren't returned as errors. Instead, they
// are recorded in the Report.
func Mirror(ctx context.Context, opts Options) (Report, error) {
	p := pass{
		fs:       opts.Fs,
		clock:    opts.Clock,
		listener: opts.Listener,
		delay:    opts.Delay,
	}
	if p.fs == nil {
		p.fs = afero.NewOsFs()
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.listener == nil {
		p.listener = nopListener{}
	}

	report := Report{Source: opts.Source, Destination: opts.Destination}
	if err := p.checkSource(opts.Source); err != nil {
		return report, err
	}

	created, err := p.ensureDestination(opts.Destination)
	if err != nil {
		return report, errors.WithContext(err, "create destination")
	}
	if created {
		report.DestinationCreated = true
		p.listener.DestinationCreated(opts.Destination)
	}

	names, err := List(p.fs, opts.Source)
	if err != nil {
		return report, errors.WithContext(err, "list source")
	}

	log.WithFields(log.Fields{
		"source":      opts.Source,
		"destination": opts.Destination,
		"entries":     len(names),
		"delay":       p.delay,
	}).Debug("Starting mirror pass")

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return report, errors.WithContext(err, "mirror")
		}

		result := p.mirrorEntry(name, opts.Source, opts.Destination)
		report.Results = append(report.Results, result)
		p.listener.Finished(result)

		if p.delay <= 0 || i == len(names)-1 {
			continue
		}
		if err := p.wait(ctx); err != nil {
			return report, errors.WithContext(err, "wait")
		}
	}
	return report, nil
}

// List returns the names of the visible entries directly inside `dir`,
// sorted lexically.
func List(fs afero.Fs, dir string) ([]string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, fi := range infos {
		if IsHidden(fi.Name()) {
			continue
		}
		names = append(names, fi.Name())
	}
	sort.Strings(names)
	return names, nil
}

// IsHidden returns whether an entry named `name` is excluded from mirroring.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, hiddenPrefix)
}

func (p pass) checkSource(source string) error {
	fi, err := p.fs.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound{Path: source}
		}
		return errors.WithContext(err, "stat source")
	}

	if !fi.IsDir() {
		return errors.NotDirectory{Path: source}
	}
	return nil
}

func (p pass) ensureDestination(destination string) (created bool, err error) {
	destExists, err := exists(p.fs, destination)
	if err != nil {
		return false, errors.WithContext(err, "stat")
	}

	if destExists {
		return false, nil
	}

	if err := p.fs.MkdirAll(destination, 0755); err != nil {
		return false, err
	}
	return true, nil
}

func (p pass) mirrorEntry(name, source, destination string) Result {
	entry := Entry{
		Name:            name,
		SourcePath:      filepath.Join(source, name),
		DestinationPath: filepath.Join(destination, name),
	}
	logger := log.WithFields(log.Fields{
		"source":      entry.SourcePath,
		"destination": entry.DestinationPath,
	})

	// A source entry that can't be stat'ed (such as a broken symlink) is
	// still skipped if the destination exists, so only fail after the
	// existence check.
	fi, statErr := p.fs.Stat(entry.SourcePath)
	if statErr == nil {
		entry.IsDir = fi.IsDir()
	}

	now := p.clock.Now()
	result := Result{Entry: entry, Started: now, Finished: now}

	destExists, err := exists(p.fs, entry.DestinationPath)
	if err != nil {
		result.Outcome = Failed
		result.Err = errors.WithContext(err, "check destination")
		logger.WithError(result.Err).Debug("Failed to check destination")
		return result
	}

	if destExists {
		result.Outcome = SkippedExisting
		logger.Debug("Destination already exists")
		return result
	}

	if statErr != nil {
		result.Outcome = Failed
		result.Err = errors.WithContext(statErr, "stat source")
		logger.WithError(result.Err).Debug("Failed to stat source")
		return result
	}

	p.listener.Copying(entry, result.Started)
	if entry.IsDir {
		result.Outcome = CopiedDirectory
		result.Bytes, err = copyTree(p.fs, entry.SourcePath, entry.DestinationPath)
	} else {
		result.Outcome = CopiedFile
		result.Bytes, err = copyFile(p.fs, entry.SourcePath, entry.DestinationPath)
	}
	result.Finished = p.clock.Now()

	if err != nil {
		result.Outcome = Failed
		result.Err = err
		logger.WithError(err).Debug("Failed to copy entry")
		return result
	}

	logger.WithFields(log.Fields{
		"bytes":   result.Bytes,
		"elapsed": result.Elapsed(),
	}).Debug("Copied entry")
	return result
}

func (p pass) wait(ctx context.Context) error {
	resumeAt := p.clock.Now().Add(p.delay)
	p.listener.Waiting(p.delay, resumeAt)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(p.delay):
		return nil
	}
}
