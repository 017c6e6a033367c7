// Package extractor provides a wrapper for yt-dlp audio extraction.
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
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
)

// Config holds extractor configuration.
type Config struct {
	DownloadDir        string        // Shared directory for all in-flight downloads
	YtDlpPath          string        // Path to yt-dlp binary
	FFmpegPath         string        // Path to ffmpeg binary (optional)
	Codec              string        // Target audio codec, also the output extension
	BitrateKbps        int           // Target audio bitrate
	InsecureSkipVerify bool          // Pass --no-check-certificates
	Timeout            time.Duration // Wall-clock limit per invocation, 0 disables
}

// DefaultConfig returns the default extractor configuration.
func DefaultConfig() *Config {
	return &Config{
		DownloadDir:        "./downloads",
		YtDlpPath:          "yt-dlp",
		Codec:              "mp3",
		BitrateKbps:        192,
		InsecureSkipVerify: true,
		Timeout:            10 * time.Minute,
	}
}

// Runner runs an external command to completion.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run starts the command and waits for it. The process is killed when ctx is done.
func (ExecRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = 5 * time.Second
	return cmd.Run()
}

// Extractor invokes yt-dlp synchronously, one call per request.
type Extractor struct {
	config *Config
	runner Runner
	logger *slog.Logger
}

// New creates a new Extractor. A nil runner uses ExecRunner.
func New(config *Config, runner Runner, logger *slog.Logger) *Extractor {
	if config == nil {
		config = DefaultConfig()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Extension returns the output file extension without the dot.
func (e *Extractor) Extension() string {
	return e.config.Codec
}

// WorkDir returns the private working directory of the request owning baseName.
func (e *Extractor) WorkDir(baseName string) string {
	return filepath.Join(e.config.DownloadDir, baseName)
}

// ExtractionConfig builds the tool configuration for a single invocation.
func (e *Extractor) ExtractionConfig(baseName string) domain.ExtractionConfig {
	return domain.ExtractionConfig{
		Format:             "bestaudio/best",
		OutputTemplate:     filepath.Join(e.WorkDir(baseName), baseName+".%(ext)s"),
		Codec:              e.config.Codec,
		BitrateKbps:        e.config.BitrateKbps,
		NoPlaylist:         true,
		InsecureSkipVerify: e.config.InsecureSkipVerify,
		FFmpegPath:         e.config.FFmpegPath,
		Logger:             e.logger.With("token", baseName),
	}
}

// Extract downloads url and transcodes it to the target codec inside the
// request's working directory <downloadDir>/<baseName>. It blocks until the
// tool exits; failures are reported in the result, never returned.
func (e *Extractor) Extract(ctx context.Context, url, baseName string) *domain.ExtractionResult {
	result := &domain.ExtractionResult{
		Title:      domain.PlaceholderTitle,
		WorkingDir: e.WorkDir(baseName),
	}

	cfg := e.ExtractionConfig(baseName)
	log := cfg.Logger

	if err := os.MkdirAll(result.WorkingDir, 0755); err != nil {
		result.Outcome = domain.OutcomeUnexpectedFailure
		result.Detail = fmt.Sprintf("failed to create working directory: %v", err)
		log.Error("Extraction failed", "outcome", result.Outcome.String(), "error", err)
		return result
	}

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	args := buildArgs(cfg, url)
	log.Debug("Running yt-dlp", "args", args)

	stdout := newOutputParser(log)
	stderr := newErrorCollector(log)

	err := e.runner.Run(ctx, e.config.YtDlpPath, args, stdout, stderr)
	stdout.Flush()
	stderr.Flush()

	if info := stdout.Info(); info != nil && strings.TrimSpace(info.Title) != "" {
		result.Title = strings.TrimSpace(info.Title)
	}

	if err == nil {
		result.Outcome = domain.OutcomeSuccess
		log.Info("Extraction completed", "title", result.Title)
		return result
	}

	result.Outcome, result.Detail = classify(ctx, err, stderr.Errors())
	result.Detail = redact(result.Detail, result.WorkingDir, baseName)
	log.Error("Extraction failed",
		"outcome", result.Outcome.String(),
		"detail", result.Detail,
		"error", err,
	)
	return result
}

// classify maps a runner error to an extraction outcome.
func classify(ctx context.Context, err error, toolErrors []string) (domain.Outcome, string) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.OutcomeExtractionFailed, "extraction timed out"
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return domain.OutcomeUnexpectedFailure, "extraction was canceled"
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(toolErrors) > 0 {
		return domain.OutcomeExtractionFailed, strings.Join(toolErrors, "; ")
	}

	return domain.OutcomeUnexpectedFailure, err.Error()
}

// redact removes the working directory and the request token from tool
// messages, which end up in front of the user.
func redact(detail, workDir, baseName string) string {
	dirs := []string{workDir}
	if abs, err := filepath.Abs(workDir); err == nil && abs != workDir {
		dirs = append(dirs, abs)
	}
	for _, dir := range dirs {
		detail = strings.ReplaceAll(detail, dir+string(filepath.Separator), "")
		detail = strings.ReplaceAll(detail, dir, "")
	}
	if baseName == "" {
		return detail
	}
	return strings.ReplaceAll(detail, baseName, "audio")
}

// buildArgs constructs the yt-dlp command arguments.
func buildArgs(cfg domain.ExtractionConfig, url string) []string {
	args := []string{
		"-f", cfg.Format,
		"-x",
		"--audio-format", cfg.Codec,
		"--audio-quality", strconv.Itoa(cfg.BitrateKbps) + "K",
		"-o", cfg.OutputTemplate,

		// Output flags
		"--newline",
		"--print-json",
		"--no-simulate",

		// Network settings
		"--socket-timeout", "30",
		"--retries", "3",

		"--no-cache-dir",
	}

	if cfg.NoPlaylist {
		args = append([]string{"--no-playlist"}, args...)
	}
	if cfg.InsecureSkipVerify {
		args = append(args, "--no-check-certificates")
	}
	if cfg.FFmpegPath != "" {
		args = append(args, "--ffmpeg-location", cfg.FFmpegPath)
	}

	// Everything after "--" is positional, so a URL can never be read as a flag.
	return append(args, "--", url)
}

// CheckYtDlp verifies that yt-dlp is installed and accessible.
func (e *Extractor) CheckYtDlp(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, e.config.YtDlpPath, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("yt-dlp not found or not executable: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

var progressRegex = regexp.MustCompile(`\[download\]\s+(\d+\.?\d*)%`)
