package tui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/berth-dev/docchat/internal/config"
)

// ErrNotInteractive is returned when the reader is started without a terminal.
var ErrNotInteractive = errors.New("docchat reader needs an interactive terminal")

// FallbackRunner handles non-TTY execution by guiding users to CLI commands.
type FallbackRunner struct {
	cfg *config.Config
	out io.Writer
}

// NewFallbackRunner creates a new FallbackRunner.
func NewFallbackRunner(cfg *config.Config) *FallbackRunner {
	return &FallbackRunner{cfg: cfg, out: os.Stdout}
}

// Run prints guidance for non-interactive use and returns ErrNotInteractive.
func (f *FallbackRunner) Run() error {
	fmt.Fprintln(f.out, "Non-TTY environment detected.")
	fmt.Fprintf(f.out, "Backend: %s\n", f.cfg.API.BaseURL)
	fmt.Fprintln(f.out, "Use 'docchat ask \"<question>\"' to ask without the reader,")
	fmt.Fprintln(f.out, "optionally scoped with --selection \"<passage>\".")
	return ErrNotInteractive
}
