package config

import (
	"path/filepath"
	"time"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/copybara/pkg/errors"
)

const (
	// UserConfigPath is the default path to the copybara user config.
	UserConfigPath = "~/.copybara.yaml"

	// InitialUserConfigVersion is the first version of the user config.
	// Config files that do not specify a version will default to this
	// version.
	InitialUserConfigVersion = "1.0"

	// SupportedUserConfigVersion is the version written by this binary.
	SupportedUserConfigVersion = "1.0"

	// SupportedUserConfigConstraint is the range of user config versions
	// that this binary can read.
	SupportedUserConfigConstraint = ">= 1.0, < 2.0"
)

// User contains the defaults used by `copybara mirror` when they aren't
// given on the command line.
type User struct {
	Version     string `json:"version,omitempty"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`

	// Delay is a duration string, such as "12h" or "90s".
	Delay string `json:"delay,omitempty"`
}

func (u User) getVersion() string {
	return u.Version
}

// DelayDuration parses the Delay field. An empty Delay means no delay.
func (u User) DelayDuration() (time.Duration, error) {
	return ParseDelay(u.Delay)
}

// ParseDelay parses a delay duration string. An empty string means no delay.
func ParseDelay(delay string) (time.Duration, error) {
	if delay == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(delay)
	if err != nil {
		return 0, err
	}

	if d < 0 {
		return 0, errors.NewFriendlyError("The delay %q must not be negative.", delay)
	}
	return d, nil
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseUser attempts to parse the User stored in the default path.
func ParseUser() (User, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return User{}, errors.WithContext(err, "expand config path")
	}

	config := User{Version: InitialUserConfigVersion}
	if err := parseConfig(path, &config, SupportedUserConfigConstraint); err != nil {
		return User{}, errors.WithContext(err, "parse")
	}

	if _, err := config.DelayDuration(); err != nil {
		return User{}, errors.NewFriendlyError(
			"The delay in %q is invalid: %s.\n"+
				"Use a duration such as \"12h\" or \"30m\".", path, err)
	}

	for _, field := range []*string{&config.Source, &config.Destination} {
		*field, err = homedir.Expand(*field)
		if err != nil {
			return User{}, errors.WithContext(err, "expand path")
		}

		// Evaluate relative paths relative to the config path.
		if *field != "" && !filepath.IsAbs(*field) {
			*field = filepath.Join(filepath.Dir(path), *field)
		}
	}
	return config, nil
}

// WriteUser writes the given user config to disk.
func WriteUser(cfg User) error {
	cfg.Version = SupportedUserConfigVersion
	path, err := GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// GetUserConfigPath returns the path to the user's copybara configuration.
// This path is expanded, so it can be directly passed to file operations.
func GetUserConfigPath() (string, error) {
	return homedirExpand(UserConfigPath)
}
