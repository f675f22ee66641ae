package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strings"

	"github.com/starford/envisage/internal/imaging"
)

// DefaultTesseractCommand is looked up on PATH when no explicit command is configured.
const DefaultTesseractCommand = "tesseract"

// Tesseract runs the tesseract CLI, piping the image as PNG on stdin and
// reading text from stdout.
type Tesseract struct {
	command string
	args    []string
}

// NewTesseract creates an engine. command may be empty to use PATH; config
// is passed through as extra CLI arguments (e.g. "--psm 6 -l eng").
func NewTesseract(command, config string) *Tesseract {
	if command == "" {
		command = DefaultTesseractCommand
	}
	return &Tesseract{command: command, args: strings.Fields(config)}
}

// Name implements Engine.
func (t *Tesseract) Name() string { return "tesseract" }

// Command returns the executable in use.
func (t *Tesseract) Command() string { return t.command }

// Extract implements Engine.
func (t *Tesseract) Extract(ctx context.Context, img image.Image) Result {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return Failed(err.Error())
	}

	args := append([]string{"stdin", "stdout"}, t.args...)
	cmd := exec.CommandContext(ctx, t.command, args...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Failed(describe(err, stderr.String()))
	}
	return Extracted(stdout.String())
}

func describe(err error, stderr string) string {
	var exitErr *exec.ExitError
	msg := err.Error()
	if errors.Is(err, exec.ErrNotFound) {
		msg = "tesseract executable not found; install it or set TESSERACT_CMD"
	} else if errors.As(err, &exitErr) {
		msg = fmt.Sprintf("tesseract exited with code %d", exitErr.ExitCode())
	}
	if s := strings.TrimSpace(stderr); s != "" {
		msg += ": " + s
	}
	return msg
}
