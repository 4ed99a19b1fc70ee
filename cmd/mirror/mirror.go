package mirror

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/copybara/cmd/util"
	"github.com/sidkik/copybara/pkg/config"
	"github.com/sidkik/copybara/pkg/errors"
	"github.com/sidkik/copybara/pkg/journal"
	"github.com/sidkik/copybara/pkg/mirror"
)

// Mocked for unit testing.
var (
	stdout          io.Writer = os.Stdout
	fs                        = afero.NewOsFs()
	clock                     = clockwork.NewRealClock()
	parseUserConfig           = config.ParseUser
	openJournal               = journal.Open
)

type mirrorCmd struct {
	delay       time.Duration
	delayHours  float64
	noBanner    bool
	noColor     bool
	journalPath string
}

// New creates a new `mirror` command.
func New() *cobra.Command {
	return newCobraCommand(&mirrorCmd{})
}

func newCobraCommand(cmd *mirrorCmd) *cobra.Command {
	cobraCmd := &cobra.Command{
		Use:   "mirror [source] [destination]",
		Short: "Copy the entries of source that are missing from destination",
		Long: `Copy every top-level file and directory in the source directory that
doesn't already exist in the destination directory. Entries that already
exist in the destination are never modified, and hidden entries (names
starting with ".") are ignored.

The source, destination, and delay default to the values in the user config,
which can be set with "copybara config".`,
		Args: cobra.MaximumNArgs(2),
		Run: func(cobraCmd *cobra.Command, args []string) {
			opts, err := cmd.resolve(cobraCmd, args)
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := cmd.run(ctx, opts); err != nil {
				stop()
				util.HandleFatalError(err)
			}
		},
	}
	cobraCmd.Flags().DurationVar(&cmd.delay, "delay", 0,
		"Time to wait between entries, such as 12h or 30m.")
	cobraCmd.Flags().Float64Var(&cmd.delayHours, "delay-hours", 0,
		"Time to wait between entries, in hours. Alternative to --delay.")
	cobraCmd.Flags().BoolVar(&cmd.noBanner, "no-banner", false,
		"Don't print the startup banner.")
	cobraCmd.Flags().BoolVar(&cmd.noColor, "no-color", false,
		"Don't color the status output.")
	cobraCmd.Flags().StringVar(&cmd.journalPath, "journal", "",
		"Append a JSON record of every event in the pass to this file.")
	return cobraCmd
}

// resolve combines the command line arguments with the user config.
// Arguments take precedence over the config.
func (cmd mirrorCmd) resolve(cobraCmd *cobra.Command, args []string) (mirror.Options, error) {
	delaySet := cobraCmd.Flags().Changed("delay")
	delayHoursSet := cobraCmd.Flags().Changed("delay-hours")
	if delaySet && delayHoursSet {
		return mirror.Options{}, errors.NewFriendlyError(
			"Only one of --delay and --delay-hours may be set.")
	}

	var opts mirror.Options
	switch {
	case delaySet:
		opts.Delay = cmd.delay
	case delayHoursSet:
		opts.Delay = time.Duration(cmd.delayHours * float64(time.Hour))
	}
	if opts.Delay < 0 {
		return mirror.Options{}, errors.NewFriendlyError("The delay must not be negative.")
	}

	if len(args) > 0 {
		opts.Source = args[0]
	}
	if len(args) > 1 {
		opts.Destination = args[1]
	}

	if opts.Source == "" || opts.Destination == "" || !(delaySet || delayHoursSet) {
		userConfig, err := parseUserConfig()
		switch {
		case err == nil:
		case isFileNotFound(err):
			log.WithError(err).Debug("No user config. Using command line arguments only")
		default:
			return mirror.Options{}, errors.WithContext(err, "parse user config")
		}

		if opts.Source == "" {
			opts.Source = userConfig.Source
		}
		if opts.Destination == "" {
			opts.Destination = userConfig.Destination
		}
		if !(delaySet || delayHoursSet) {
			// The delay was already validated by ParseUser.
			opts.Delay, _ = userConfig.DelayDuration()
		}
	}

	if opts.Source == "" || opts.Destination == "" {
		return mirror.Options{}, errors.NewFriendlyError(
			"Both a source and a destination directory are required.\n" +
				"Pass them as arguments, or run `copybara config` to set defaults.")
	}

	for _, path := range []*string{&opts.Source, &opts.Destination} {
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return mirror.Options{}, errors.WithContext(err, "expand path")
		}
		*path = expanded
	}
	return opts, nil
}

func (cmd mirrorCmd) run(ctx context.Context, opts mirror.Options) error {
	printer := newPrinter(stdout, !cmd.noColor)
	if !cmd.noBanner {
		printer.Banner()
	}

	listeners := multiListener{printer}
	if cmd.journalPath != "" {
		journalFile, err := openJournal(cmd.journalPath)
		if err != nil {
			return errors.WithContext(err, "open journal")
		}
		defer func() {
			if err := journalFile.Close(); err != nil {
				log.WithError(err).Warn("Failed to close journal")
			}
		}()

		journal.SetSource(opts.Source)
		journal.SetDestination(opts.Destination)
		listeners = append(listeners, journalListener{})
	}

	opts.Fs = fs
	opts.Clock = clock
	opts.Listener = listeners

	journal.Log.WithField("delay", opts.Delay.String()).Info("Pass started")
	report, err := mirror.Mirror(ctx, opts)
	if err != nil {
		switch cause := errors.RootCause(err).(type) {
		case errors.FileNotFound:
			printer.SourceMissing(cause.Path)
			return errors.NewFriendlyError("Source directory %s does not exist.", cause.Path)
		case errors.NotDirectory:
			printer.SourceNotDirectory(cause.Path)
			return errors.NewFriendlyError("Source path %s is not a directory.", cause.Path)
		}

		if errors.Is(err, context.Canceled) {
			printer.Summary(report)
			journal.Log.WithField("copied", report.Copied()).Warn("Pass interrupted")
			return errors.NewFriendlyError("Interrupted before all entries were processed.")
		}
		return errors.WithContext(err, "mirror")
	}

	if len(report.Results) == 0 {
		printer.NothingToDo()
		journal.Log.Info("Nothing to copy")
		return nil
	}

	printer.Summary(report)
	journal.Log.WithFields(log.Fields{
		"copied":  report.Copied(),
		"skipped": report.Skipped(),
		"failed":  len(report.Failures()),
		"bytes":   report.Bytes(),
	}).Info("Pass finished")
	return nil
}

func isFileNotFound(err error) bool {
	_, ok := errors.RootCause(err).(errors.FileNotFound)
	return ok
}

// multiListener forwards every notification to each of its listeners in
// order.
type multiListener []mirror.Listener

func (ml multiListener) DestinationCreated(path string) {
	for _, l := range ml {
		l.DestinationCreated(path)
	}
}

func (ml multiListener) Copying(entry mirror.Entry, at time.Time) {
	for _, l := range ml {
		l.Copying(entry, at)
	}
}

func (ml multiListener) Finished(result mirror.Result) {
	for _, l := range ml {
		l.Finished(result)
	}
}

func (ml multiListener) Waiting(delay time.Duration, resumeAt time.Time) {
	for _, l := range ml {
		l.Waiting(delay, resumeAt)
	}
}

// journalListener records pass events in the journal.
type journalListener struct{}

func (journalListener) DestinationCreated(path string) {
	journal.Log.WithField("path", path).Info("Created destination")
}

func (journalListener) Copying(entry mirror.Entry, at time.Time) {
	journal.Log.WithField("entry", entry.Name).WithTime(at).Info("Copying")
}

func (journalListener) Finished(result mirror.Result) {
	entry := journal.Log.WithFields(log.Fields{
		"entry":   result.Name,
		"outcome": result.Outcome.String(),
	}).WithTime(result.Finished)

	switch result.Outcome {
	case mirror.Failed:
		entry.WithError(result.Err).Error("Failed to copy")
	case mirror.SkippedExisting:
		entry.Info("Already exists")
	default:
		entry.WithFields(log.Fields{
			"bytes":   result.Bytes,
			"elapsed": result.Elapsed().String(),
		}).Info("Copied")
	}
}

func (journalListener) Waiting(delay time.Duration, resumeAt time.Time) {
	journal.Log.WithFields(log.Fields{
		"delay":    delay.String(),
		"resumeAt": resumeAt,
	}).Info("Waiting")
}
