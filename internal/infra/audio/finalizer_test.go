package audio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
)

func readTitle(path string) (string, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return "", err
	}
	defer tag.Close()
	return strings.TrimSpace(tag.Title()), nil
}

func TestFinalizeWritesTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Song.mp3")
	payload := []byte("not really audio data")
	require.NoError(t, os.WriteFile(path, payload, 0644))

	out := &domain.ResolvedOutput{AbsolutePath: path, DisplayName: "Song.mp3"}
	err := NewFinalizer(true, nil).Finalize(context.Background(), out, "Café: Live!")
	require.NoError(t, err)

	title, err := readTitle(path)
	require.NoError(t, err)
	assert.Equal(t, "Café: Live!", title)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(data, payload))
	assert.Zero(t, out.Duration)
}

func TestFinalizeSkipsPlaceholderAndDisabled(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("audio")

	placeholder := filepath.Join(dir, "a.mp3")
	require.NoError(t, os.WriteFile(placeholder, payload, 0644))
	require.NoError(t, NewFinalizer(true, nil).Finalize(context.Background(),
		&domain.ResolvedOutput{AbsolutePath: placeholder}, domain.PlaceholderTitle))

	disabled := filepath.Join(dir, "b.mp3")
	require.NoError(t, os.WriteFile(disabled, payload, 0644))
	require.NoError(t, NewFinalizer(false, nil).Finalize(context.Background(),
		&domain.ResolvedOutput{AbsolutePath: disabled}, "Title"))

	for _, path := range []string{placeholder, disabled} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	}
}

func TestFinalizeIgnoresOtherFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Song.opus")
	require.NoError(t, os.WriteFile(path, []byte("opus"), 0644))

	err := NewFinalizer(true, nil).Finalize(context.Background(), &domain.ResolvedOutput{AbsolutePath: path}, "Song")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "opus", string(data))
}

func TestProbeMissingFile(t *testing.T) {
	_, err := Probe(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}
