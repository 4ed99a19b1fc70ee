// Package journal records mirror pass events as JSON lines, so that long
// passes spread over many hours can be reviewed afterwards.
package journal

import (
	"io"
	"io/ioutil"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/copybara/pkg/version"
)

var (
	// Log is the global journal logger. Events logged through it are only
	// written once a journal has been opened.
	Log = newJournalLogger()

	// Optional values for automatically enriching journal records.
	source      string
	destination string

	// Mocked out for unit testing.
	fs = afero.NewOsFs()
)

func newJournalLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)
	return logger
}

// journalFormatter formats entries with stable key names so that the
// journal can be processed with tools like jq.
var journalFormatter = &logrus.JSONFormatter{
	FieldMap: logrus.FieldMap{
		logrus.FieldKeyTime:  "timestamp",
		logrus.FieldKeyLevel: "level",
		logrus.FieldKeyMsg:   "message",
	},
}

// Open appends all future journal events to the file at `path`, creating it
// if necessary. The caller is responsible for closing the returned file.
func Open(path string) (io.Closer, error) {
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	Log.AddHook(NewHook(f))
	return f, nil
}

// NewHook creates a hook that writes every entry to `w` as a line of JSON.
func NewHook(w io.Writer) logrus.Hook {
	return &hook{levels: logrus.AllLevels, w: w}
}

// SetSource sets the source directory that is automatically added to
// journal records.
func SetSource(s string) {
	source = s
}

// SetDestination sets the destination directory that is automatically added
// to journal records.
func SetDestination(d string) {
	destination = d
}

type hook struct {
	levels []logrus.Level

	lock sync.Mutex
	w    io.Writer
}

func (h *hook) Levels() []logrus.Level {
	return h.levels
}

func (h *hook) Fire(entry *logrus.Entry) error {
	dataCopy := map[string]interface{}{
		"copybara-version": version.Version,
	}
	if source != "" {
		dataCopy["source"] = source
	}
	if destination != "" {
		dataCopy["destination"] = destination
	}
	for k, v := range entry.Data {
		dataCopy[k] = v
	}

	// Copy the entry so that we don't change it when we add the
	// journal-specific values to Data.
	entryCopy := *entry
	entryCopy.Data = dataCopy

	jsonBytes, err := journalFormatter.Format(&entryCopy)
	if err != nil {
		logrus.WithError(err).Debug("Failed to marshal journal entry")
		return nil
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	if _, err := h.w.Write(jsonBytes); err != nil {
		logrus.WithError(err).Debug("Failed to write journal entry")
	}

	// Never return an error because doing so causes the error to be printed
	// directly to `stderr`, in the middle of the pass output.
	return nil
}
