// Package tools runs the external bioinformatics programs the pipeline
// delegates to. Commands are built as argument vectors, never shell strings.
package tools

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	verrors "variationutil/api/errors"
	"variationutil/api/utils"

	"go.uber.org/zap"
)

type (
	Command struct {
		Name string
		Args []string

		// Stdin is fed to the process when set.
		Stdin io.Reader
		// Stdout receives the process' standard output when set; only
		// standard error is captured in that case.
		Stdout io.Writer
	}

	Result struct {
		Command  string
		ExitCode int
		Output   string
	}

	Runner interface {
		// Run blocks until the command exits. A non-nil Result is returned
		// whenever the process started, even if it then failed.
		Run(ctx context.Context, cmd Command) (*Result, error)
	}

	ExecRunner struct {
		logger *zap.Logger
	}
)

func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(a string) string {
	if a == "" || strings.ContainsAny(a, " \t\n\"'\\$") {
		return strconv.Quote(a)
	}
	return a
}

func NewExecRunner(logger *zap.Logger) *ExecRunner {
	return &ExecRunner{logger: utils.OrNop(logger)}
}

func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	line := c.String()
	r.logger.Debug("running command", zap.String("command", line))

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, verrors.NewToolError(line, -1, "", err)
	}
	defer pr.Close()

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdin = c.Stdin
	cmd.Stderr = pw
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	} else {
		cmd.Stdout = pw
	}

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, verrors.NewToolError(line, -1, "", err)
	}
	// the child holds its own copy of the write end
	pw.Close()

	var captured strings.Builder
	reader := bufio.NewReader(pr)
	for {
		text, readErr := reader.ReadString('\n')
		if len(text) > 0 {
			captured.WriteString(text)
			r.logger.Debug(strings.TrimRight(text, "\r\n"), zap.String("tool", c.Name))
		}
		if readErr != nil {
			break
		}
	}

	waitErr := cmd.Wait()
	res := &Result{
		Command:  line,
		ExitCode: cmd.ProcessState.ExitCode(),
		Output:   captured.String(),
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return res, verrors.NewToolError(line, exitErr.ExitCode(), res.Output, waitErr)
		}
		return res, verrors.NewToolError(line, res.ExitCode, res.Output, waitErr)
	}

	return res, nil
}
