package util

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/copybara/pkg/config"
	"github.com/sidkik/copybara/pkg/errors"
)

// TestHelper runs the copybara binary against a scratch home directory.
type TestHelper struct {
	Binary string
	Home   string
	fs     afero.Fs
}

// NewTestHelper creates a new TestHelper whose commands see `home` as the
// user's home directory.
func NewTestHelper(binary, home string) *TestHelper {
	return &TestHelper{Binary: binary, Home: home, fs: afero.NewOsFs()}
}

// Result is the outcome of a copybara command that ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func (helper *TestHelper) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, helper.Binary, args...)
	cmd.Dir = helper.Home
	cmd.Env = append(os.Environ(), "HOME="+helper.Home)
	return cmd
}

// Run runs the given copybara command and waits for it to exit. A non-zero
// exit code isn't treated as an error.
func (helper *TestHelper) Run(ctx context.Context, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := helper.command(ctx, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

// RunUntilOutput starts the given copybara command, and interrupts it once a
// line starting with `prefix` is printed.
func (helper *TestHelper) RunUntilOutput(ctx context.Context, prefix string, args ...string) (
	Result, error) {

	var stdout, stderr bytes.Buffer
	cmd := helper.command(ctx, args...)
	cmd.Stderr = &stderr
	stdoutReader, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, errors.WithContext(err, "pipe stdout")
	}

	if err := cmd.Start(); err != nil {
		return Result{}, errors.WithContext(err, "start")
	}

	scanner := bufio.NewScanner(io.TeeReader(stdoutReader, &stdout))
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), prefix) {
			if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
				return Result{}, errors.WithContext(err, "interrupt")
			}
			break
		}
	}

	// Drain the rest of the output so that the process can exit.
	if _, err := io.Copy(&stdout, stdoutReader); err != nil {
		return Result{}, errors.WithContext(err, "read stdout")
	}

	err = cmd.Wait()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

// WriteUserConfig writes the user config into the scratch home directory.
func (helper *TestHelper) WriteUserConfig(cfg config.User) error {
	cfg.Version = config.SupportedUserConfigVersion
	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}
	return afero.WriteFile(helper.fs, filepath.Join(helper.Home, ".copybara.yaml"), yamlBytes, 0644)
}

// WriteTree creates the given files, keyed by their path relative to `root`.
func (helper *TestHelper) WriteTree(root string, files map[string]string) error {
	for path, contents := range files {
		path = filepath.Join(root, path)
		if err := helper.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return errors.WithContext(err, "mkdir")
		}
		if err := afero.WriteFile(helper.fs, path, []byte(contents), 0644); err != nil {
			return errors.WithContext(err, "write")
		}
	}
	return nil
}

// ReadTree returns the contents of every file below `root`, keyed by their
// path relative to `root`.
func (helper *TestHelper) ReadTree(root string) (map[string]string, error) {
	files := map[string]string{}
	err := afero.Walk(helper.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		contents, err := afero.ReadFile(helper.fs, path)
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[relPath] = string(contents)
		return nil
	})
	return files, err
}
