// +build ci

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/copybara/ci/util"
	"github.com/sidkik/copybara/pkg/config"
)

type TestFunction func(*testing.T, *util.TestHelper)

var sourceTree = map[string]string{
	"notes.txt":             "meeting notes",
	"photos/2023/beach.jpg": "jpeg bytes",
	"photos/index.txt":      "beach.jpg",
	".DS_Store":             "finder metadata",
}

func TestCopybara(t *testing.T) {
	binary, ok := os.LookupEnv("CI_COPYBARA_BINARY")
	if !ok {
		t.Error("missing required environment variable CI_COPYBARA_BINARY")
		return
	}

	tests := []struct {
		name   string
		testFn TestFunction
	}{
		{name: "Mirror", testFn: testMirror},
		{name: "SkipsExisting", testFn: testSkipsExisting},
		{name: "UserConfig", testFn: testUserConfig},
		{name: "MissingSource", testFn: testMissingSource},
		{name: "Interrupt", testFn: testInterrupt},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			test.testFn(t, util.NewTestHelper(binary, t.TempDir()))
		})
	}
}

func testMirror(t *testing.T, helper *util.TestHelper) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	src := filepath.Join(helper.Home, "src")
	dst := filepath.Join(helper.Home, "dst")
	require.NoError(t, helper.WriteTree(src, sourceTree))

	res, err := helper.Run(ctx, "mirror", src, dst, "--no-banner", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode, res.Stderr)
	assert.Contains(t, res.Stdout, "Destination directory "+dst+" was created.")
	assert.Contains(t, res.Stdout, "Successfully copied 2 items")

	files, err := helper.ReadTree(dst)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"notes.txt":             "meeting notes",
		"photos/2023/beach.jpg": "jpeg bytes",
		"photos/index.txt":      "beach.jpg",
	}, files)

	// A second pass has nothing left to copy.
	res, err = helper.Run(ctx, "mirror", src, dst, "--no-banner", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode, res.Stderr)
	assert.Contains(t, res.Stdout, "Successfully copied 0 items")
	assert.Contains(t, res.Stdout, "Skipped 2 items that already existed.")
}

func testSkipsExisting(t *testing.T, helper *util.TestHelper) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	src := filepath.Join(helper.Home, "src")
	dst := filepath.Join(helper.Home, "dst")
	require.NoError(t, helper.WriteTree(src, sourceTree))
	require.NoError(t, helper.WriteTree(dst, map[string]string{
		"photos/old.jpg": "old jpeg",
	}))

	res, err := helper.Run(ctx, "mirror", src, dst, "--no-banner", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode, res.Stderr)
	assert.Contains(t, res.Stdout, "Destination directory "+filepath.Join(dst, "photos")+
		" already exists. Skipping...")

	files, err := helper.ReadTree(dst)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"notes.txt":      "meeting notes",
		"photos/old.jpg": "old jpeg",
	}, files)
}

func testUserConfig(t *testing.T, helper *util.TestHelper) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	require.NoError(t, helper.WriteTree(filepath.Join(helper.Home, "src"), sourceTree))

	res, err := helper.Run(ctx, "config",
		"--source", "~/src", "--destination", "~/dst", "--delay", "0s")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode, res.Stderr)

	res, err = helper.Run(ctx, "config", "get-destination")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(helper.Home, "dst")+"\n", res.Stdout)

	res, err = helper.Run(ctx, "mirror", "--no-banner", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode, res.Stderr)
	assert.Contains(t, res.Stdout, "Successfully copied 2 items")
}

func testMissingSource(t *testing.T, helper *util.TestHelper) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	src := filepath.Join(helper.Home, "missing")
	dst := filepath.Join(helper.Home, "dst")
	res, err := helper.Run(ctx, "mirror", src, dst, "--no-banner", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "Source directory "+src+" does not exist.\n\n", res.Stdout)

	_, err = os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
}

func testInterrupt(t *testing.T, helper *util.TestHelper) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	src := filepath.Join(helper.Home, "src")
	dst := filepath.Join(helper.Home, "dst")
	require.NoError(t, helper.WriteTree(src, sourceTree))
	require.NoError(t, helper.WriteUserConfig(config.User{Delay: "1h"}))

	res, err := helper.RunUntilOutput(ctx, "Waiting for",
		"mirror", src, dst, "--no-banner", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Stdout, "Waiting for 1.0000 hours...")
	assert.Contains(t, res.Stdout, "Successfully copied 1 items")
	assert.Contains(t, res.Stderr, "Interrupted before all entries were processed.")

	files, err := helper.ReadTree(dst)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"notes.txt": "meeting notes"}, files)
}
