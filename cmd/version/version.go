package version

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/copybara/pkg/config"
	"github.com/sidkik/copybara/pkg/version"
)

// Mocked for unit testing.
var stdout io.Writer = os.Stdout

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of copybara.",
		Long: "Print the version of copybara, and the user config versions " +
			"that it can read.",
		Run: func(_ *cobra.Command, _ []string) {
			run()
		},
	}
}

func run() {
	fmt.Fprintf(stdout, "local version:  %s\n", version.Version)
	fmt.Fprintf(stdout, "config version: %s\n", config.SupportedUserConfigConstraint)
}
