package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/copybara/cmd/util"
	"github.com/sidkik/copybara/pkg/config"
	"github.com/sidkik/copybara/pkg/errors"
)

// defaultDelay is suggested when the user hasn't configured a delay yet.
const defaultDelay = "12h"

// Mocked for unit testing.
var (
	stdout              io.Writer = os.Stdout
	stdin               io.Reader = os.Stdin
	guessDefaults                 = guessDefaultsImpl
	parseUserConfig               = config.ParseUser
	writeUserConfig               = config.WriteUser
	getUserConfigPath             = config.GetUserConfigPath
	stat                          = os.Stat
	getWorkingDirectory           = os.Getwd
)

// New creates a new `config` command.
func New() *cobra.Command {
	var cliOpts config.User
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup the default source, destination, and delay",
		Long: "Setup the defaults used by `copybara mirror` when the source, " +
			"destination, or delay aren't given on the command line.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := SetupConfig(cliOpts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&cliOpts.Source, "source", "",
		"Set the source directory in the config. "+
			"Optional: If not set, `copybara config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.Destination, "destination", "",
		"Set the destination directory in the config. "+
			"Optional: If not set, `copybara config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.Delay, "delay", "",
		"Set the delay between entries in the config, such as 12h or 30m. "+
			"Optional: If not set, `copybara config` will interactively prompt.")

	// Setup the commands for querying the contents of the user config.
	type getterSpec struct {
		use, short string
		fn         func(config.User) string
	}

	getters := []getterSpec{
		{
			use:   "get-source",
			short: "Get the currently configured source directory",
			fn:    func(cfg config.User) string { return cfg.Source },
		},
		{
			use:   "get-destination",
			short: "Get the currently configured destination directory",
			fn:    func(cfg config.User) string { return cfg.Destination },
		},
		{
			use:   "get-delay",
			short: "Get the currently configured delay between entries",
			fn:    func(cfg config.User) string { return cfg.Delay },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := parseUserConfig()
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig prompts for the fields missing from `cliOpts`, and writes the
// result to the user config.
func SetupConfig(cliOpts config.User) error {
	if cliOpts.Delay != "" {
		if msg, ok := delayValidationFn(cliOpts.Delay); !ok {
			return errors.New(msg)
		}
	}

	cfg, err := generateConfig(cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := writeUserConfig(cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	path, err := getUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "get user config path")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", path)
	return nil
}

// sourceValidationFn requires the source to be an existing directory.
func sourceValidationFn(path string) (string, bool) {
	if msg, ok := requiredValidationFn(path); !ok {
		return msg, false
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Sprintf("Failed to expand %s: %s", path, err), false
	}

	fi, err := stat(expanded)
	switch {
	case os.IsNotExist(err):
		return fmt.Sprintf("%s does not exist. Please pick another directory.", path), false
	case err != nil:
		return fmt.Sprintf("Failed to read %s: %s", path, err), false
	case !fi.IsDir():
		return fmt.Sprintf("%s is not a directory. Please pick another directory.", path), false
	}
	return "", true
}

// requiredValidationFn is used for the destination, which is created by
// `copybara mirror` if it doesn't exist.
func requiredValidationFn(path string) (string, bool) {
	if strings.TrimSpace(path) == "" {
		return "A path is required.", false
	}
	return "", true
}

func delayValidationFn(delay string) (string, bool) {
	if _, err := config.ParseDelay(delay); err != nil {
		return fmt.Sprintf("%q is not a valid delay. "+
			"Please enter a duration such as 12h, 30m, or 0s.", delay), false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the user's desired
// configuration is.
// It makes best guesses at reasonable defaults, and allows users to explicitly
// override them if desired.
func generateConfig(cliOpts config.User) (config.User, error) {
	defaults := guessDefaults()
	currConfig, err := parseUserConfig()
	if err != nil {
		currConfig = config.User{}
		log.WithError(err).Debug("Failed to read current config")
	}

	cfg := cliOpts
	var prompts []prompt
	if cliOpts.Source == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the directory to copy entries from.\n" +
				"It defaults to the current directory.",
			prompt:        "Source directory",
			defaultAnswer: defaults.Source,
			currAnswer:    currConfig.Source,
			field:         &cfg.Source,
			validationFn:  sourceValidationFn,
		})
	}

	if cliOpts.Destination == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the directory to copy entries to.\n" +
				"It's created if it doesn't exist. Entries that already exist in it are never modified.",
			prompt:        "Destination directory",
			defaultAnswer: defaults.Destination,
			currAnswer:    currConfig.Destination,
			field:         &cfg.Destination,
			validationFn:  requiredValidationFn,
		})
	}

	if cliOpts.Delay == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter how long to wait between copying entries.\n" +
				"Use 0s to copy everything at once.",
			prompt:        "Delay",
			defaultAnswer: defaults.Delay,
			currAnswer:    currConfig.Delay,
			field:         &cfg.Delay,
			validationFn:  delayValidationFn,
		})
	}

	for _, prompt := range prompts {
		var resp string
		for {
			resp, err = promptUser(prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.User{}, errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		*prompt.field = resp
	}

	return cfg, nil
}

// guessDefaults tries to guess reasonable defaults for the fields in the user
// config.
func guessDefaultsImpl() (cfg config.User) {
	if source, err := guessSource(); err == nil {
		cfg.Source = source
	} else {
		log.WithError(err).Info("Failed to guess source")
	}

	cfg.Delay = defaultDelay
	return cfg
}

// guessSource returns the current directory.
func guessSource() (string, error) {
	currDir, err := getWorkingDirectory()
	if err != nil {
		return "", errors.WithContext(err, "get current directory")
	}
	return currDir, nil
}

func promptUser(helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	stdinReader := bufio.NewReader(stdin)

	if nOptions := len(options); nOptions > 1 {
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimSpace(choiceStr)

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					continue
				}
			}

			if choice == nOptions {
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp), nil
}
