package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/copybara/pkg/errors"
)

var csvHeader = []string{
	"timestamp", "level", "message", "source", "destination",
	"entry", "outcome", "bytes", "error",
}

var fs = afero.NewOsFs()

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: journal-to-csv OUTPUT JOURNAL...")
		os.Exit(1)
	}

	if err := convertJournals(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to convert journals: %s\n", err)
		os.Exit(1)
	}
}

// convertJournals combines the records of all the journals at `inPaths` into
// a single csv.
func convertJournals(outPath string, inPaths []string) error {
	out, err := fs.Create(outPath)
	if err != nil {
		return errors.WithContext(err, "create output file")
	}
	defer out.Close()

	csvWriter := csv.NewWriter(out)
	if err := csvWriter.Write(csvHeader); err != nil {
		return errors.WithContext(err, "write csv header")
	}

	for _, path := range inPaths {
		in, err := fs.Open(path)
		if err != nil {
			return errors.WithContext(err, "open journal")
		}

		n, err := convert(in, csvWriter)
		in.Close()
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("convert %s", path))
		}
		log.WithField("path", path).WithField("records", n).Info("Converted journal")
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// convert writes a csv row for each journal record in `in`. Lines that
// aren't valid records are skipped.
func convert(in io.Reader, out *csv.Writer) (int, error) {
	var n int
	scanner := bufio.NewScanner(in)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		var record map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			log.WithError(err).WithField("line", lineNum).Warn("Skipping malformed journal record")
			continue
		}

		row := make([]string, len(csvHeader))
		for i, key := range csvHeader {
			if val, ok := record[key]; ok {
				row[i] = fmt.Sprint(val)
			}
		}

		if err := out.Write(row); err != nil {
			return n, errors.WithContext(err, "write row")
		}
		n++
	}
	return n, scanner.Err()
}
