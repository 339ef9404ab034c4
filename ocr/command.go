package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// CommandRunner runs an external program with stdin and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Command is an Engine backed by a command-line OCR program that reads the
// image on stdin and writes text to stdout.
type Command struct {
	name   string
	binary string
	args   []string
	runner CommandRunner
}

var _ Engine = (*Command)(nil)

// CommandOption configures a Command.
type CommandOption func(*Command)

// WithRunner replaces the process runner.
func WithRunner(runner CommandRunner) CommandOption {
	return func(c *Command) {
		c.runner = runner
	}
}

// WithBinary overrides the program path.
func WithBinary(path string) CommandOption {
	return func(c *Command) {
		c.binary = path
	}
}

// NewCommand creates an engine that runs binary with args.
func NewCommand(name, binary string, args []string, opts ...CommandOption) *Command {
	c := &Command{name: name, binary: binary, args: args, runner: execRunner{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TesseractArgs returns the arguments that make tesseract read an image on
// stdin and print text on stdout. An empty lang uses tesseract's default.
func TesseractArgs(lang string) []string {
	args := []string{"stdin", "stdout"}
	if lang != "" {
		args = append(args, "-l", lang)
	}
	return args
}

// NewTesseract creates an engine running `tesseract stdin stdout -l lang`.
func NewTesseract(lang string, opts ...CommandOption) *Command {
	return NewCommand("tesseract", "tesseract", TesseractArgs(lang), opts...)
}

// Name returns the registry name.
func (c *Command) Name() string {
	return c.name
}

// ExtractText pipes image through the program.
func (c *Command) ExtractText(ctx context.Context, image []byte) (string, error) {
	out, err := c.runner.Run(ctx, image, c.binary, c.args...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
