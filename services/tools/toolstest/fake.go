// Package toolstest provides an in-process stand-in for the external
// programs, for tests that must not depend on installed binaries.
package toolstest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	verrors "variationutil/api/errors"
	"variationutil/api/services/tools"

	"github.com/biogo/hts/bgzf"
)

type Handler func(cmd tools.Command) (*tools.Result, error)

type Runner struct {
	mu       sync.Mutex
	Calls    []tools.Command
	handlers map[string]Handler
}

// NewRunner returns a fake runner emulating bgzip and tabix for the
// binary names in paths. Other binaries succeed with no output unless a
// handler is registered with On.
func NewRunner(paths tools.Paths) *Runner {
	r := &Runner{handlers: map[string]Handler{}}
	r.On(paths.Bgzip, Bgzip)
	r.On(paths.Tabix, Tabix)
	return r
}

func (r *Runner) On(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Runner) Run(_ context.Context, cmd tools.Command) (*tools.Result, error) {
	r.mu.Lock()
	r.Calls = append(r.Calls, cmd)
	h, ok := r.handlers[cmd.Name]
	r.mu.Unlock()

	if !ok {
		return &tools.Result{Command: cmd.String()}, nil
	}
	return h(cmd)
}

// CallsTo lists the recorded invocations of one binary.
func (r *Runner) CallsTo(name string) []tools.Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []tools.Command
	for _, c := range r.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Fail returns a handler that exits with the given code and output.
func Fail(exitCode int, output string) Handler {
	return func(cmd tools.Command) (*tools.Result, error) {
		res := &tools.Result{Command: cmd.String(), ExitCode: exitCode, Output: output}
		return res, verrors.NewToolError(res.Command, exitCode, output, fmt.Errorf("exit status %d", exitCode))
	}
}

// Output returns a handler that exits with the given code and output,
// reporting a tool error only for non-zero codes.
func Output(exitCode int, output string) Handler {
	if exitCode != 0 {
		return Fail(exitCode, output)
	}
	return func(cmd tools.Command) (*tools.Result, error) {
		return &tools.Result{Command: cmd.String(), Output: output}, nil
	}
}

// Bgzip block-compresses stdin to stdout.
func Bgzip(cmd tools.Command) (*tools.Result, error) {
	if cmd.Stdin == nil || cmd.Stdout == nil {
		return Fail(1, "bgzip: no stream")(cmd)
	}
	w := bgzf.NewWriter(cmd.Stdout, 1)
	if _, err := io.Copy(w, cmd.Stdin); err != nil {
		return Fail(1, err.Error())(cmd)
	}
	if err := w.Close(); err != nil {
		return Fail(1, err.Error())(cmd)
	}
	return &tools.Result{Command: cmd.String()}, nil
}

// Tabix supports -p (writes a placeholder index), -H and -r.
func Tabix(cmd tools.Command) (*tools.Result, error) {
	if len(cmd.Args) < 2 {
		return Fail(1, "tabix: bad arguments")(cmd)
	}

	switch cmd.Args[0] {
	case "-p":
		path := cmd.Args[len(cmd.Args)-1]
		if _, err := os.Stat(path); err != nil {
			return Fail(1, err.Error())(cmd)
		}
		if err := os.WriteFile(path+".tbi", []byte("TBI\x01"), 0644); err != nil {
			return Fail(1, err.Error())(cmd)
		}
	case "-H":
		lines, err := readBgzfLines(cmd.Args[1])
		if err != nil {
			return Fail(1, err.Error())(cmd)
		}
		for _, l := range lines {
			if strings.HasPrefix(l, "#") {
				fmt.Fprintln(cmd.Stdout, l)
			}
		}
	case "-r":
		header, err := os.ReadFile(cmd.Args[1])
		if err != nil {
			return Fail(1, err.Error())(cmd)
		}
		lines, err := readBgzfLines(cmd.Args[2])
		if err != nil {
			return Fail(1, err.Error())(cmd)
		}
		w := bgzf.NewWriter(cmd.Stdout, 1)
		w.Write(header)
		for _, l := range lines {
			if !strings.HasPrefix(l, "#") {
				fmt.Fprintln(w, l)
			}
		}
		if err := w.Close(); err != nil {
			return Fail(1, err.Error())(cmd)
		}
	default:
		return Fail(1, "tabix: unsupported flag "+cmd.Args[0])(cmd)
	}
	return &tools.Result{Command: cmd.String()}, nil
}

// WriteBgzf writes content as a BGZF file at path.
func WriteBgzf(path string, content string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bgzf.NewWriter(f, 1)
	if _, err := io.WriteString(w, content); err != nil {
		return err
	}
	return w.Close()
}

// ReadBgzf returns the decompressed content of a BGZF file.
func ReadBgzf(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r, err := bgzf.NewReader(f, 1)
	if err != nil {
		return "", err
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	return string(b), err
}

func readBgzfLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := bgzf.NewReader(f, 1)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
