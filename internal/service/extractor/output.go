package extractor

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
)

// lineWriter splits written bytes into lines and hands each to fn.
type lineWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
	fn  func(line string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		w.fn(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush emits a trailing line that had no newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		line := w.buf.String()
		w.buf.Reset()
		w.fn(strings.TrimRight(line, "\r\n"))
	}
}

// outputParser reads yt-dlp stdout: the info JSON and progress lines.
type outputParser struct {
	lineWriter
	logger   *slog.Logger
	info     *domain.VideoInfo
	progress int
}

func newOutputParser(logger *slog.Logger) *outputParser {
	p := &outputParser{logger: logger, progress: -1}
	p.fn = p.handle
	return p
}

func (p *outputParser) handle(line string) {
	if line == "" {
		return
	}

	if strings.HasPrefix(line, "{") {
		var info domain.VideoInfo
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			p.logger.Warn("Could not parse yt-dlp info JSON", "error", err)
			return
		}
		if p.info == nil {
			p.info = &info
		}
		return
	}

	if m := progressRegex.FindStringSubmatch(line); len(m) > 1 {
		// Log steps of ten percent only.
		if progress, err := strconv.ParseFloat(m[1], 64); err == nil && int(progress)/10 != p.progress/10 {
			p.progress = int(progress)
			p.logger.Debug("yt-dlp progress", "percent", p.progress)
		}
		return
	}

	p.logger.Debug("yt-dlp", "line", line)
}

// Info returns the first info JSON seen on stdout.
func (p *outputParser) Info() *domain.VideoInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// errorCollector reads yt-dlp stderr, forwarding to the log sink and keeping ERROR lines.
type errorCollector struct {
	lineWriter
	logger *slog.Logger
	errors []string
}

func newErrorCollector(logger *slog.Logger) *errorCollector {
	c := &errorCollector{logger: logger}
	c.fn = c.handle
	return c
}

func (c *errorCollector) handle(line string) {
	switch {
	case line == "":
	case strings.HasPrefix(line, "ERROR:"):
		c.errors = append(c.errors, strings.TrimSpace(strings.TrimPrefix(line, "ERROR:")))
		c.logger.Error("yt-dlp", "line", line)
	case strings.HasPrefix(line, "WARNING:"):
		c.logger.Warn("yt-dlp", "line", line)
	default:
		c.logger.Debug("yt-dlp", "line", line)
	}
}

// Errors returns the ERROR lines reported by the tool.
func (c *errorCollector) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.errors...)
}
