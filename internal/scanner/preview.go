package scanner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Runner lets tests stub external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	if err != nil {
		slog.Error("exec.failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
			"stderr", errb.String(),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

// PdftoppmRenderer renders the first page of a PDF to PNG with poppler's
// pdftoppm.
type PdftoppmRenderer struct {
	Bin    string
	DPI    int
	runner Runner
}

func NewPdftoppmRenderer(bin string, dpi int) *PdftoppmRenderer {
	if bin == "" {
		bin = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 100
	}
	return &PdftoppmRenderer{Bin: bin, DPI: dpi, runner: execRunner{}}
}

// Render writes pdf to a temp dir and returns page one as PNG bytes.
func (p *PdftoppmRenderer) Render(ctx context.Context, pdf []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "idscan-preview-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, err
	}
	prefix := filepath.Join(dir, "page")
	// pdftoppm -f 1 -l 1 -r <dpi> -png -singlefile <in.pdf> <dir/page>
	_, errb, err := p.runner.Run(ctx, p.Bin,
		"-f", "1", "-l", "1", "-r", strconv.Itoa(p.DPI), "-png", "-singlefile", in, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	png, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image: %w", err)
	}
	return png, nil
}
