// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/internal/logging"
)

const defaultCLICommand = "claude"

// command describes one subprocess invocation.
type command struct {
	Name   string
	Args   []string
	Dir    string
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, cmd command) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Run(ctx context.Context, c command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// CLIBackend runs the claude command-line tool in print mode with
// stream-json output and emits the text blocks of each assistant message.
type CLIBackend struct {
	Command    string
	WorkingDir string
	Model      string

	exec executor
	log  logrus.FieldLogger
}

// NewCLIBackend creates a CLI backend. An empty command uses "claude".
func NewCLIBackend(command, workingDir, model string, log logrus.FieldLogger) *CLIBackend {
	if command == "" {
		command = defaultCLICommand
	}
	if log == nil {
		log = logging.Discard()
	}
	return &CLIBackend{Command: command, WorkingDir: workingDir, Model: model, exec: osExecutor{}, log: log}
}

// Available reports whether the command is on PATH.
func (c *CLIBackend) Available() bool {
	_, err := c.exec.LookPath(c.Command)
	return err == nil
}

func (c *CLIBackend) args(opts Options) []string {
	args := []string{"-p", "--output-format", "stream-json", "--verbose"}
	if opts.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(opts.MaxTurns))
	}
	if opts.PermissionMode != "" {
		args = append(args, "--permission-mode", opts.PermissionMode)
	}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}
	return args
}

// Stream pipes prompt on stdin and decodes stdout line by line.
func (c *CLIBackend) Stream(ctx context.Context, prompt string, opts Options, emit func(string)) error {
	var env []string
	if opts.MaxTokens > 0 {
		env = append(env, "MAX_THINKING_TOKENS="+strconv.Itoa(opts.MaxTokens))
	}

	w := &streamJSONWriter{emit: emit, log: c.log}
	err := c.exec.Run(ctx, command{
		Name:   c.Command,
		Args:   c.args(opts),
		Dir:    c.WorkingDir,
		Env:    env,
		Stdin:  strings.NewReader(prompt),
		Stdout: w,
	})
	w.Flush()
	if err != nil {
		return fmt.Errorf("running %s: %w", c.Command, err)
	}
	if w.resultErr != "" {
		return fmt.Errorf("%s reported an error: %s", c.Command, w.resultErr)
	}
	return nil
}

// streamLine is one line of stream-json output.
type streamLine struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	IsError bool   `json:"is_error"`
	Result  string `json:"result"`
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// streamJSONWriter splits written bytes into lines and emits assistant
// text blocks as they complete.
type streamJSONWriter struct {
	emit      func(string)
	log       logrus.FieldLogger
	buf       bytes.Buffer
	resultErr string
}

func (w *streamJSONWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// Incomplete line: put it back for the next write.
			w.buf.Write(line)
			return len(p), nil
		}
		w.handle(line)
	}
}

// Flush handles a trailing line without a newline.
func (w *streamJSONWriter) Flush() {
	if w.buf.Len() > 0 {
		w.handle(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *streamJSONWriter) handle(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	var sl streamLine
	if err := json.Unmarshal(line, &sl); err != nil {
		w.log.WithError(err).Debug("ignoring non-json cli output")
		return
	}
	switch sl.Type {
	case "assistant":
		for _, block := range sl.Message.Content {
			if block.Type == "text" && block.Text != "" {
				w.emit(block.Text)
			}
		}
	case "result":
		if sl.IsError {
			w.resultErr = sl.Subtype
			if sl.Result != "" {
				w.resultErr = sl.Result
			}
		}
	}
}
