package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
)

type fakeRunner struct {
	run   func(ctx context.Context, args []string, stdout, stderr io.Writer) error
	name  string
	args  []string
	calls int
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	f.calls++
	f.name = name
	f.args = args
	return f.run(ctx, args, stdout, stderr)
}

// exitError produces a real *exec.ExitError with the given status.
func exitError(t *testing.T, code int) error {
	t.Helper()
	err := exec.Command("sh", "-c", fmt.Sprintf("exit %d", code)).Run()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	return err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func indexOf(args []string, flag string) int {
	for i, a := range args {
		if a == flag {
			return i
		}
	}
	return -1
}

func newTestExtractor(t *testing.T, runner Runner) *Extractor {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DownloadDir = t.TempDir()
	cfg.Timeout = 0
	return New(cfg, runner, testLogger())
}

func TestBuildArgs(t *testing.T) {
	e := New(&Config{DownloadDir: "/data/dl", Codec: "mp3", BitrateKbps: 192, InsecureSkipVerify: true, FFmpegPath: "/usr/bin/ffmpeg"}, nil, testLogger())
	cfg := e.ExtractionConfig("tok")

	args := buildArgs(cfg, "-https://evil")

	assert.Equal(t, "--no-playlist", args[0])
	assert.Contains(t, args, "-x")
	assert.Contains(t, args, "--no-check-certificates")
	assert.Contains(t, args, "/usr/bin/ffmpeg")
	assert.Equal(t, []string{"--", "-https://evil"}, args[len(args)-2:])

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-f bestaudio/best")
	assert.Contains(t, joined, "--audio-format mp3")
	assert.Contains(t, joined, "--audio-quality 192K")
	assert.Contains(t, joined, "-o "+filepath.Join("/data/dl", "tok", "tok.%(ext)s"))
}

func TestBuildArgsStrictCertificates(t *testing.T) {
	e := New(&Config{DownloadDir: "/d", Codec: "mp3", BitrateKbps: 128}, nil, testLogger())
	args := buildArgs(e.ExtractionConfig("tok"), "https://example.com")

	assert.NotContains(t, args, "--no-check-certificates")
	assert.NotContains(t, args, "--ffmpeg-location")
}

func TestExtractSuccess(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, args []string, stdout, stderr io.Writer) error {
		fmt.Fprintln(stdout, `{"id":"abc","title":"  My Song: Live!  ","ext":"webm"}`)
		fmt.Fprintln(stdout, "[download]  42.0% of 3.00MiB")
		fmt.Fprint(stderr, "WARNING: something harmless")
		return nil
	}}
	e := newTestExtractor(t, runner)

	result := e.Extract(context.Background(), "https://example.com/watch?v=abc", "tok")

	assert.Equal(t, domain.OutcomeSuccess, result.Outcome)
	assert.Equal(t, "My Song: Live!", result.Title)
	assert.Equal(t, filepath.Join(e.config.DownloadDir, "tok"), result.WorkingDir)
	assert.DirExists(t, result.WorkingDir)
	assert.NoError(t, result.Err())
	assert.Equal(t, "yt-dlp", runner.name)
	assert.Equal(t, 1, runner.calls)
}

func TestExtractPlaceholderTitle(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, args []string, stdout, stderr io.Writer) error {
		fmt.Fprintln(stdout, `{"id":"abc"}`)
		return nil
	}}

	result := newTestExtractor(t, runner).Extract(context.Background(), "https://example.com", "tok")

	assert.Equal(t, domain.OutcomeSuccess, result.Outcome)
	assert.Equal(t, domain.PlaceholderTitle, result.Title)
}

func TestExtractToolError(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, args []string, stdout, stderr io.Writer) error {
		fmt.Fprintln(stderr, "ERROR: [youtube] abc: Video unavailable")
		return exitError(t, 1)
	}}

	result := newTestExtractor(t, runner).Extract(context.Background(), "https://example.com", "tok")

	assert.Equal(t, domain.OutcomeExtractionFailed, result.Outcome)
	assert.Equal(t, "[youtube] abc: Video unavailable", result.Detail)
	assert.ErrorIs(t, result.Err(), domain.ErrExtractionFailed)
}

func TestExtractToolErrorIsRedacted(t *testing.T) {
	token := "0b6f0c52-2d3f-4a57-9a43-4c1d0e8f7a11"
	var workDir string
	runner := &fakeRunner{run: func(ctx context.Context, args []string, stdout, stderr io.Writer) error {
		workDir = filepath.Dir(args[indexOf(args, "-o")+1])
		fmt.Fprintf(stderr, "ERROR: Postprocessing: unable to open %s\n", filepath.Join(workDir, token+".webm"))
		return exitError(t, 1)
	}}

	result := newTestExtractor(t, runner).Extract(context.Background(), "https://example.com", token)

	assert.Equal(t, "Postprocessing: unable to open audio.webm", result.Detail)
	assert.NotContains(t, result.Detail, token)
	assert.NotContains(t, result.Detail, workDir)
}

func TestExtractExitWithoutToolError(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, args []string, stdout, stderr io.Writer) error {
		fmt.Fprintln(stderr, "Traceback (most recent call last):")
		return exitError(t, 2)
	}}

	result := newTestExtractor(t, runner).Extract(context.Background(), "https://example.com", "tok")

	assert.Equal(t, domain.OutcomeUnexpectedFailure, result.Outcome)
	assert.ErrorIs(t, result.Err(), domain.ErrUnexpected)
}

func TestExtractStartFailure(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, args []string, stdout, stderr io.Writer) error {
		return &os.PathError{Op: "fork/exec", Path: "yt-dlp", Err: os.ErrNotExist}
	}}

	result := newTestExtractor(t, runner).Extract(context.Background(), "https://example.com", "tok")

	assert.Equal(t, domain.OutcomeUnexpectedFailure, result.Outcome)
	assert.Contains(t, result.Detail, "yt-dlp")
}

func TestExtractTimeout(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, args []string, stdout, stderr io.Writer) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	e := newTestExtractor(t, runner)
	e.config.Timeout = 20 * time.Millisecond

	result := e.Extract(context.Background(), "https://example.com", "tok")

	assert.Equal(t, domain.OutcomeExtractionFailed, result.Outcome)
	assert.Equal(t, "extraction timed out", result.Detail)
}

func TestExtractCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{run: func(ctx context.Context, args []string, stdout, stderr io.Writer) error {
		cancel()
		return ctx.Err()
	}}

	result := newTestExtractor(t, runner).Extract(ctx, "https://example.com", "tok")

	assert.Equal(t, domain.OutcomeUnexpectedFailure, result.Outcome)
}

func TestLineWriterSplitsChunks(t *testing.T) {
	var lines []string
	w := &lineWriter{fn: func(line string) { lines = append(lines, line) }}

	_, _ = w.Write([]byte("fir"))
	_, _ = w.Write([]byte("st\r\nsecond\nthi"))
	w.Flush()

	assert.Equal(t, []string{"first", "second", "thi"}, lines)
}
