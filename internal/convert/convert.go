// Package convert turns office documents into PDF by shelling out to an
// installed office suite.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	appLog "gatherbot/internal/log"
)

var (
	// ErrNoConverter is returned by Probe when none of the candidates is
	// installed.
	ErrNoConverter = errors.New("convert: no converter available")
	// ErrTooLarge is returned for inputs above the configured size cap.
	ErrTooLarge = errors.New("convert: file too large")
	// ErrUnsupported is returned for file types that are not converted.
	ErrUnsupported = errors.New("convert: unsupported file type")
)

// DefaultConverters is the probing order used when none is configured.
var DefaultConverters = []string{"soffice", "libreoffice", "unoconv"}

const (
	DefaultTimeout  = 120 * time.Second
	DefaultMaxBytes = 25 << 20
)

var supported = map[string]struct{}{
	".doc":  {},
	".docx": {},
	".pptx": {},
}

// Supported reports whether filename has an extension we convert.
func Supported(filename string) bool {
	_, ok := supported[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// PDFName returns filename with its extension replaced by .pdf.
func PDFName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".pdf"
}

type Options struct {
	// Converters are candidate executables, tried in order. Bare names are
	// resolved through PATH.
	Converters []string
	// Timeout bounds one conversion, including download.
	Timeout time.Duration
	// MaxBytes caps input size.
	MaxBytes int64
	// WorkDir is where per-conversion scratch directories are created.
	// Empty means os.TempDir().
	WorkDir string
}

func (o *Options) normalize() {
	if len(o.Converters) == 0 {
		o.Converters = DefaultConverters
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.WorkDir == "" {
		o.WorkDir = os.TempDir()
	}
}

// Converter runs one resolved converter executable.
type Converter struct {
	name string
	path string
	opts Options
}

// Probe returns a Converter for the first candidate found on the host.
func Probe(opts Options) (*Converter, error) {
	opts.normalize()
	for _, candidate := range opts.Converters {
		path, err := exec.LookPath(candidate)
		if err != nil {
			appLog.Debug("converter not found", "candidate", candidate)
			continue
		}
		name := filepath.Base(candidate)
		appLog.Info("converter found", "name", name, "path", path)
		return &Converter{name: name, path: path, opts: opts}, nil
	}
	return nil, ErrNoConverter
}

// Name is the converter's executable name, e.g. "soffice".
func (c *Converter) Name() string {
	return c.name
}

func (c *Converter) MaxBytes() int64 {
	return c.opts.MaxBytes
}

// ConvertBytes writes data as filename into a fresh scratch directory,
// converts it and returns the PDF bytes. The scratch directory is removed
// afterwards.
func (c *Converter) ConvertBytes(ctx context.Context, filename string, data []byte) ([]byte, error) {
	if !Supported(filename) {
		return nil, ErrUnsupported
	}
	if int64(len(data)) > c.opts.MaxBytes {
		return nil, ErrTooLarge
	}

	dir := filepath.Join(c.opts.WorkDir, "gatherbot-convert-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(src, data, 0o600); err != nil {
		return nil, err
	}
	return c.ToPDF(ctx, src, dir)
}

// ToPDF converts the document at src, writing the PDF into outDir, and
// returns its content.
func (c *Converter) ToPDF(ctx context.Context, src, outDir string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	out := filepath.Join(outDir, PDFName(src))
	cmd := exec.CommandContext(ctx, c.path, c.args(src, outDir, out)...)
	cmd.Dir = outDir
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("convert: %s timed out after %s: %w", c.name, c.opts.Timeout, ctx.Err())
		}
		return nil, fmt.Errorf("convert: %s failed: %w: %s", c.name, err, strings.TrimSpace(string(output)))
	}

	pdf, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("convert: %s produced no output: %w", c.name, err)
	}
	appLog.Info("document converted", "converter", c.name, "file", filepath.Base(src), "bytes", len(pdf), "took", time.Since(start).Round(time.Millisecond))
	return pdf, nil
}

func (c *Converter) args(src, outDir, out string) []string {
	if strings.HasPrefix(c.name, "unoconv") {
		return []string{"-f", "pdf", "-o", out, src}
	}
	// soffice and libreoffice share one CLI. A private profile lets
	// conversions run side by side.
	profile := "file://" + filepath.ToSlash(filepath.Join(outDir, "profile"))
	return []string{
		"-env:UserInstallation=" + profile,
		"--headless",
		"--convert-to", "pdf",
		"--outdir", outDir,
		src,
	}
}
