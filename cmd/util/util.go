package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/copybara/pkg/errors"
)

// Mocked for unit testing.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// HandleFatalError handles errors that are severe enough to terminate the
// program. The user sees the friendly message if there is one, and the full
// error is logged for debugging.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(stderr, errors.GetPrintableMessage(err))
	exit(1)
}

// HandlePanic logs a panic with its stack trace before exiting. It must be
// deferred directly by the goroutine that may panic.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("Unexpected panic")
		fmt.Fprintf(stderr, "copybara crashed unexpectedly: %v\n", r)
		exit(2)
	}
}
