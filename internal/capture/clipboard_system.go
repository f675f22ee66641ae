package capture

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/starford/envisage/internal/apperr"
)

// imageTypes are requested in order of preference.
var imageTypes = []string{"image/png", "image/jpeg", "image/bmp", "image/tiff", "image/webp"}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// SystemClipboard reads the clipboard through the platform's command-line
// tools: wl-paste on Wayland, xclip on X11, osascript and pngpaste on macOS.
type SystemClipboard struct {
	run    runFunc
	goos   string
	getenv func(string) string
}

// NewSystemClipboard returns a clipboard reader for the current platform.
func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{run: runCommand, goos: runtime.GOOS, getenv: os.Getenv}
}

// Read implements Clipboard.
func (c *SystemClipboard) Read(ctx context.Context) (Content, error) {
	switch c.goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		if c.getenv("WAYLAND_DISPLAY") != "" {
			return c.readTargets(ctx,
				[]string{"wl-paste", "--list-types"},
				func(mime string) []string { return []string{"wl-paste", "--no-newline", "--type", mime} })
		}
		return c.readTargets(ctx,
			[]string{"xclip", "-selection", "clipboard", "-t", "TARGETS", "-o"},
			func(mime string) []string { return []string{"xclip", "-selection", "clipboard", "-t", mime, "-o"} })
	case "darwin":
		return c.readDarwin(ctx)
	default:
		return Content{}, fmt.Errorf("clipboard: %s: %w", c.goos, apperr.ErrUnsupported)
	}
}

func (c *SystemClipboard) readTargets(ctx context.Context, list []string, fetch func(string) []string) (Content, error) {
	out, err := c.run(ctx, list[0], list[1:]...)
	if err != nil {
		return Content{}, err
	}
	targets := map[string]struct{}{}
	for _, line := range strings.Split(string(out), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			targets[t] = struct{}{}
		}
	}

	if _, ok := targets["text/uri-list"]; ok {
		args := fetch("text/uri-list")
		raw, err := c.run(ctx, args[0], args[1:]...)
		if err != nil {
			return Content{}, err
		}
		if files := parseURIList(raw); len(files) > 0 {
			return Content{Files: files}, nil
		}
	}
	for _, mime := range imageTypes {
		if _, ok := targets[mime]; !ok {
			continue
		}
		args := fetch(mime)
		data, err := c.run(ctx, args[0], args[1:]...)
		if err != nil {
			return Content{}, err
		}
		return Content{Image: data}, nil
	}
	return Content{}, nil
}

func (c *SystemClipboard) readDarwin(ctx context.Context) (Content, error) {
	if out, err := c.run(ctx, "osascript", "-e", "POSIX path of (the clipboard as «class furl»)"); err == nil {
		if p := strings.TrimSpace(string(out)); p != "" {
			return Content{Files: []string{p}}, nil
		}
	}
	data, err := c.run(ctx, "pngpaste", "-")
	if err != nil {
		// pngpaste exits non-zero when the clipboard holds no image.
		return Content{}, nil
	}
	return Content{Image: data}, nil
}

// parseURIList extracts local paths from a text/uri-list payload.
func parseURIList(raw []byte) []string {
	var files []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, err := url.Parse(line)
		if err != nil || u.Scheme != "file" || u.Path == "" {
			continue
		}
		files = append(files, u.Path)
	}
	return files
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("clipboard: %s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
