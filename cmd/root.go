package cmd

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/copybara/cmd/config"
	mirrorCmd "github.com/sidkik/copybara/cmd/mirror"
	"github.com/sidkik/copybara/cmd/util"
	"github.com/sidkik/copybara/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "COPYBARA_LOG_VERBOSE"

// envFile is loaded into the environment before any command runs, if it
// exists.
const envFile = ".env"

// Execute runs the main CLI process.
func Execute() {
	loadEnvFile(envFile)
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	rootCmd := &cobra.Command{
		Use:   "copybara",
		Short: "Mirror the entries of a directory that are missing from another",
		Long: `copybara copies every top-level file and directory of a source directory
that doesn't already exist in a destination directory, optionally waiting
between copies.`,
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		configCmd.New(),
		mirrorCmd.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

// loadEnvFile sets the variables defined in `path`. Variables that are
// already set in the environment take precedence.
func loadEnvFile(path string) {
	err := godotenv.Load(path)
	switch {
	case err == nil:
		log.WithField("path", path).Debug("Loaded environment file")
	case os.IsNotExist(err):
	default:
		log.WithError(err).WithField("path", path).Warn("Failed to load environment file")
	}
}
