package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/copybara/pkg/errors"
)

const out = "/home/colin/.copybara.yaml"

func mockUserConfig(t *testing.T) {
	fs = afero.NewMemMapFs()
	homedirExpand = func(_ string) (string, error) {
		return out, nil
	}
}

func TestParseUser(t *testing.T) {
	userEmptyVersion := User{
		Source:      "/Users/colin/Desktop/folder_01",
		Destination: "/Users/colin/Desktop/folder_02",
		Delay:       "12h",
	}
	userInitialVersion := userEmptyVersion
	userInitialVersion.Version = InitialUserConfigVersion

	userCorrectVersion := userEmptyVersion
	userCorrectVersion.Version = SupportedUserConfigVersion

	userMinorVersion := userEmptyVersion
	userMinorVersion.Version = "1.3"

	userIncorrectVersion := userEmptyVersion
	userIncorrectVersion.Version = "2.0"

	tests := []struct {
		name      string
		input     []byte
		expConfig User
		expError  error
	}{
		{
			name:      "EmptyVersion",
			input:     mustMarshal(t, userEmptyVersion),
			expConfig: userInitialVersion,
		},
		{
			name:      "CorrectVersion",
			input:     mustMarshal(t, userCorrectVersion),
			expConfig: userCorrectVersion,
		},
		{
			name:      "CompatibleMinorVersion",
			input:     mustMarshal(t, userMinorVersion),
			expConfig: userMinorVersion,
		},
		{
			name:  "IncompatibleVersion",
			input: mustMarshal(t, userIncorrectVersion),
			expError: errors.WithContext(incompatibleVersionError{
				path:       out,
				constraint: SupportedUserConfigConstraint,
				actual:     "2.0",
			}, "parse"),
		},
		{
			name:  "UnparseableVersion",
			input: []byte("version: latest\n"),
			expError: errors.WithContext(incompatibleVersionError{
				path:       out,
				constraint: SupportedUserConfigConstraint,
				actual:     "latest",
			}, "parse"),
		},
		{
			name: "ExtraFields",
			input: []byte(fmt.Sprintf(
				"version: %q\nextra: fields", SupportedUserConfigVersion)),
			expError: errors.WithContext(
				errors.NewFriendlyError(parseConfigErrTemplate, out,
					errors.New("error unmarshaling JSON: while decoding JSON: "+
						`json: unknown field "extra"`)),
				"parse"),
		},
		{
			name: "VersionCheckedBeforeExtraFields",
			input: []byte(`
version: "3.0"
extra: fields
`),
			expError: errors.WithContext(incompatibleVersionError{
				path:       out,
				constraint: SupportedUserConfigConstraint,
				actual:     "3.0",
			}, "parse"),
		},
		{
			name:  "InvalidDelay",
			input: []byte("delay: soon\n"),
			expError: errors.NewFriendlyError(
				"The delay in %q is invalid: %s.\n"+
					"Use a duration such as \"12h\" or \"30m\".", out,
				`time: invalid duration "soon"`),
		},
		{
			name:  "RelativePaths",
			input: []byte("source: in\ndestination: backups/out\n"),
			expConfig: User{
				Version:     InitialUserConfigVersion,
				Source:      "/home/colin/in",
				Destination: "/home/colin/backups/out",
			},
		},
	}

	mockUserConfig(t)
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			err := afero.WriteFile(fs, out, test.input, 0644)
			require.NoError(t, err)
			config, err := ParseUser()
			assert.Equal(t, test.expConfig, config)
			assert.Equal(t, test.expError, err)
		})
	}
}

func TestParseMissingUser(t *testing.T) {
	mockUserConfig(t)

	_, err := ParseUser()
	assert.Equal(t, errors.FileNotFound{Path: out}, errors.RootCause(err))
}

func TestParseWrittenUser(t *testing.T) {
	mockUserConfig(t)

	user := User{
		Source:      "/src",
		Destination: "/dst",
		Delay:       "30m",
	}

	// Write the user to disk, and assert that we get the same user config when
	// we parse it.
	assert.NoError(t, WriteUser(user))

	parsed, err := ParseUser()
	assert.NoError(t, err)

	user.Version = SupportedUserConfigVersion
	assert.Equal(t, user, parsed)

	delay, err := parsed.DelayDuration()
	assert.NoError(t, err)
	assert.Equal(t, 30*time.Minute, delay)
}

func TestParseDelay(t *testing.T) {
	tests := []struct {
		input    string
		exp      time.Duration
		expError bool
	}{
		{input: "", exp: 0},
		{input: "12h", exp: 12 * time.Hour},
		{input: "1h30m", exp: 90 * time.Minute},
		{input: "0s", exp: 0},
		{input: "-1h", expError: true},
		{input: "12", expError: true},
	}

	for _, test := range tests {
		d, err := ParseDelay(test.input)
		if test.expError {
			assert.Error(t, err, test.input)
			continue
		}
		assert.NoError(t, err, test.input)
		assert.Equal(t, test.exp, d, test.input)
	}
}

func mustMarshal(t *testing.T, user User) []byte {
	yamlBytes, err := yaml.Marshal(user)
	require.NoError(t, err)
	return yamlBytes
}
