package convert

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeSoffice = `#!/bin/sh
outdir=""
src=""
while [ $# -gt 0 ]; do
  case "$1" in
    --outdir) outdir="$2"; shift 2 ;;
    --convert-to) shift 2 ;;
    -*) shift ;;
    *) src="$1"; shift ;;
  esac
done
base=$(basename "$src")
printf '%%PDF-1.4 %s\n' "$base" > "$outdir/${base%.*}.pdf"
`

const fakeUnoconv = `#!/bin/sh
out=""
src=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    -f) shift 2 ;;
    *) src="$1"; shift ;;
  esac
done
printf '%%PDF-1.4 unoconv\n' > "$out"
`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestSupported(t *testing.T) {
	for _, name := range []string{"a.doc", "b.DOCX", "slides.pptx", "dir/x.Docx"} {
		assert.True(t, Supported(name), name)
	}
	for _, name := range []string{"a.pdf", "b.xlsx", "noext", "ppt.txt"} {
		assert.False(t, Supported(name), name)
	}
	assert.Equal(t, "report.pdf", PDFName("report.docx"))
	assert.Equal(t, "report.final.pdf", PDFName("/tmp/report.final.docx"))
}

func TestProbeOrder(t *testing.T) {
	dir := t.TempDir()
	uno := writeScript(t, dir, "unoconv", fakeUnoconv)

	_, err := Probe(Options{Converters: []string{filepath.Join(dir, "missing")}})
	assert.ErrorIs(t, err, ErrNoConverter)

	c, err := Probe(Options{Converters: []string{filepath.Join(dir, "soffice"), uno}})
	require.NoError(t, err)
	assert.Equal(t, "unoconv", c.Name())

	soffice := writeScript(t, dir, "soffice", fakeSoffice)
	c, err = Probe(Options{Converters: []string{soffice, uno}})
	require.NoError(t, err)
	assert.Equal(t, "soffice", c.Name())
}

func TestConvertBytes(t *testing.T) {
	for _, tc := range []struct{ script, body, want string }{
		{"soffice", fakeSoffice, "%PDF-1.4 notes.docx\n"},
		{"unoconv", fakeUnoconv, "%PDF-1.4 unoconv\n"},
	} {
		t.Run(tc.script, func(t *testing.T) {
			bin := writeScript(t, t.TempDir(), tc.script, tc.body)
			work := t.TempDir()
			c, err := Probe(Options{Converters: []string{bin}, WorkDir: work})
			require.NoError(t, err)

			pdf, err := c.ConvertBytes(context.Background(), "notes.docx", []byte("PK\x03\x04"))
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(pdf))

			left, err := os.ReadDir(work)
			require.NoError(t, err)
			assert.Empty(t, left, "scratch directory removed")
		})
	}
}

func TestConvertBytesRejects(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "soffice", fakeSoffice)
	c, err := Probe(Options{Converters: []string{bin}, MaxBytes: 4, WorkDir: t.TempDir()})
	require.NoError(t, err)

	_, err = c.ConvertBytes(context.Background(), "big.docx", []byte("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = c.ConvertBytes(context.Background(), "sheet.xlsx", []byte("1"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestConverterFailureAndTimeout(t *testing.T) {
	dir := t.TempDir()
	failing := writeScript(t, dir, "soffice", "#!/bin/sh\necho 'source file could not be loaded' >&2\nexit 1\n")
	c, err := Probe(Options{Converters: []string{failing}, WorkDir: t.TempDir()})
	require.NoError(t, err)
	_, err = c.ConvertBytes(context.Background(), "a.doc", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be loaded")

	slowDir := t.TempDir()
	slow := writeScript(t, slowDir, "libreoffice", "#!/bin/sh\nexec sleep 10\n")
	c, err = Probe(Options{Converters: []string{slow}, Timeout: 200 * time.Millisecond, WorkDir: t.TempDir()})
	require.NoError(t, err)
	start := time.Now()
	_, err = c.ConvertBytes(context.Background(), "a.pptx", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDownloaderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/small.docx":
			fmt.Fprint(w, "docx-bytes")
		case "/big.docx":
			w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := NewDownloader(32)

	body, err := d.Fetch(context.Background(), srv.URL+"/small.docx?sig=secret")
	require.NoError(t, err)
	assert.Equal(t, "docx-bytes", string(body))

	_, err = d.Fetch(context.Background(), srv.URL+"/big.docx")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = d.Fetch(context.Background(), srv.URL+"/missing.docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/...(redacted)", redactURL("https://cdn.example.com/attachments/1/2/a.docx?ex=1&hm=abc"))
	assert.Equal(t, "(redacted)", redactURL("not a url"))
}
