package mirror

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/buger/goterm"
	humanize "github.com/dustin/go-humanize"

	"github.com/sidkik/copybara/pkg/mirror"
	"github.com/sidkik/copybara/pkg/version"
)

// timestampFormat renders times like "08:30:00 AM on Monday, February 05, 2024".
const timestampFormat = "03:04:05 PM on Monday, January 02, 2006"

const separator = "=================="

const bannerArt = `     _____  ____   _____ __     __ ____            _____
    / ____|/ __ \ |  __ \\ \   / /|  _ \    /\    |  __ \     /\
   | |    | |  | || |__) |\ \_/ / | |_) |  /  \   | |__) |   /  \
   | |    | |  | ||  ___/  \   /  |  _ <  / /\ \  |  _  /   / /\ \
   | |____| |__| || |       | |   | |_) |/ ____ \ | | \ \  / ____ \
    \_____|\____/ |_|       |_|   |____//_/    \_\|_|  \_\/_/    \_\`

const bannerRule = "***************************************************************************"

// printer renders the progress of a mirror pass as human readable text.
type printer struct {
	out   io.Writer
	color bool
}

func newPrinter(out io.Writer, color bool) printer {
	return printer{out: out, color: color}
}

func (p printer) colored(msg string, color int) string {
	if !p.color {
		return msg
	}
	return goterm.Color(msg, color)
}

func formatTime(t time.Time) string {
	return t.Format(timestampFormat)
}

// Banner prints the startup notice.
func (p printer) Banner() {
	fmt.Fprintf(p.out, "\n%s\n%s\n", bannerRule, bannerRule)
	fmt.Fprintf(p.out, "%s\n\n", centered(" copybara "+version.Version+" ", "=", len(bannerRule)))
	fmt.Fprintf(p.out, "%s\n\n", bannerArt)
	fmt.Fprintf(p.out, "%s\n%s\n\n", bannerRule, bannerRule)
}

// centered pads `s` on both sides with `fill` up to `width`.
func centered(s, fill string, width int) string {
	padding := width - len(s)
	if padding <= 0 {
		return s
	}

	left := padding / 2
	return strings.Repeat(fill, left) + s + strings.Repeat(fill, padding-left)
}

func (p printer) SourceMissing(path string) {
	fmt.Fprintf(p.out, "Source directory %s does not exist.\n\n", path)
}

func (p printer) SourceNotDirectory(path string) {
	fmt.Fprintf(p.out, "Source path %s is not a directory.\n\n", path)
}

func (p printer) NothingToDo() {
	fmt.Fprint(p.out, "No items to copy. Exiting.\n\n")
}

func (p printer) DestinationCreated(path string) {
	fmt.Fprintf(p.out, "Destination directory %s was created.\n\n", path)
}

func (p printer) Copying(entry mirror.Entry, at time.Time) {
	kind := "FILE"
	if entry.IsDir {
		kind = "DIRECTORY"
	}

	fmt.Fprintf(p.out, "COPYING %s at %s:\n%s\n%s\n>>>to>>>\n%s\n%s\n",
		kind, formatTime(at), separator, entry.SourcePath, entry.DestinationPath, separator)
}

func (p printer) Finished(result mirror.Result) {
	switch result.Outcome {
	case mirror.SkippedExisting:
		kind := "file"
		if result.IsDir {
			kind = "directory"
		}
		msg := fmt.Sprintf("Destination %s %s already exists. Skipping...", kind, result.DestinationPath)
		fmt.Fprintf(p.out, "%s\n\n", p.colored(msg, goterm.YELLOW))
	case mirror.Failed:
		msg := fmt.Sprintf("Failed to copy %s to %s. Error: %s",
			result.SourcePath, result.DestinationPath, result.Err)
		fmt.Fprintf(p.out, "%s\n\n", p.colored(msg, goterm.RED))
	default:
		msg := fmt.Sprintf("Completed at %s (%s in %s).",
			formatTime(result.Finished), humanize.Bytes(uint64(result.Bytes)),
			result.Elapsed().Round(time.Millisecond))
		fmt.Fprintf(p.out, "%s\n\n", p.colored(msg, goterm.GREEN))
	}
}

func (p printer) Waiting(delay time.Duration, resumeAt time.Time) {
	fmt.Fprintf(p.out, "Waiting for %.4f hours...\nNext copy will begin at %s.\n\n",
		delay.Hours(), formatTime(resumeAt))
}

// Summary prints the totals for the pass.
func (p printer) Summary(report mirror.Report) {
	fmt.Fprintf(p.out, "Successfully copied %d items (%s).\n",
		report.Copied(), humanize.Bytes(uint64(report.Bytes())))

	if skipped := report.Skipped(); skipped > 0 {
		fmt.Fprintf(p.out, "Skipped %d items that already existed.\n", skipped)
	}

	if failures := report.Failures(); len(failures) > 0 {
		msg := fmt.Sprintf("Failed to copy %d items:", len(failures))
		fmt.Fprintln(p.out, p.colored(msg, goterm.RED))
		for _, failure := range failures {
			fmt.Fprintf(p.out, "  %s\n", failure.SourcePath)
		}
	}
	fmt.Fprintln(p.out)
}
