package adapter

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// TestRunnerAdapter abstracts test execution for fitness evaluation.
type TestRunnerAdapter interface {
	// Compile builds the package tree rooted at workDir. A build failure is
	// reported through the error; output carries the compiler diagnostics.
	Compile(ctx context.Context, workDir string) (output string, err error)

	// RunTest runs a single named test in workDir. Returns the combined
	// stdout/stderr output; err is non-nil when the test fails or cannot
	// run.
	RunTest(ctx context.Context, workDir, testName string) (output string, err error)
}

// LocalTestRunnerAdapter provides a concrete implementation using os/exec
// and the Go toolchain.
type LocalTestRunnerAdapter struct {
	timeout time.Duration
}

// NewLocalTestRunnerAdapter constructs a LocalTestRunnerAdapter with the
// given per-invocation timeout.
func NewLocalTestRunnerAdapter(timeout time.Duration) *LocalTestRunnerAdapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &LocalTestRunnerAdapter{timeout: timeout}
}

// Compile runs 'go build ./...' in workDir.
func (a *LocalTestRunnerAdapter) Compile(ctx context.Context, workDir string) (string, error) {
	return a.run(ctx, workDir, "go", "build", "./...")
}

// RunTest runs 'go test -run <name>' in workDir. The name is anchored so
// only the exact test executes.
func (a *LocalTestRunnerAdapter) RunTest(ctx context.Context, workDir, testName string) (string, error) {
	return a.run(ctx, workDir, "go", "test", "-count=1", "-run", "^"+testName+"$", "./...")
}

func (a *LocalTestRunnerAdapter) run(ctx context.Context, workDir, name string, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.String() + stderr.String(), err
}
