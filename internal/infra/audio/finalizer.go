// Package audio prepares transcoded files for delivery.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/hajimehoshi/go-mp3"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
)

// Finalizer writes the title tag and probes the duration of a resolved MP3.
type Finalizer struct {
	tagTitle bool
	logger   *slog.Logger
}

// NewFinalizer creates a new Finalizer.
func NewFinalizer(tagTitle bool, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{tagTitle: tagTitle, logger: logger}
}

// Finalize tags and probes out in place. Only a tagging failure is returned;
// files that are not MP3 are left untouched.
func (f *Finalizer) Finalize(ctx context.Context, out *domain.ResolvedOutput, title string) error {
	if !strings.EqualFold(strings.TrimPrefix(filepath.Ext(out.AbsolutePath), "."), "mp3") {
		return nil
	}

	if f.tagTitle && title != "" && title != domain.PlaceholderTitle {
		if err := WriteTitle(out.AbsolutePath, title); err != nil {
			return err
		}
	}

	if d, err := Probe(out.AbsolutePath); err != nil {
		f.logger.Debug("Could not probe output", "path", out.AbsolutePath, "error", err)
	} else {
		out.Duration = d
		f.logger.Debug("Probed output", "path", out.AbsolutePath, "duration", d.String())
	}

	return nil
}

// WriteTitle sets the ID3v2 title frame, keeping any other frames.
func WriteTitle(path, title string) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open tag: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(title)

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tag: %w", err)
	}
	return nil
}

// Probe returns the playback duration of an MP3 file.
func Probe(path string) (time.Duration, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	dec, err := mp3.NewDecoder(file)
	if err != nil {
		return 0, fmt.Errorf("failed to decode mp3: %w", err)
	}

	// Length is in bytes of 16-bit stereo PCM.
	length := dec.Length()
	if length <= 0 || dec.SampleRate() <= 0 {
		return 0, fmt.Errorf("unknown mp3 length")
	}
	samples := length / 4
	return time.Duration(samples) * time.Second / time.Duration(dec.SampleRate()), nil
}
