package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
	"github.com/emanuelef/yt-mp3-api-go/internal/service/sanitize"
)

func TestFileDelivererCopies(t *testing.T) {
	src := filepath.Join(t.TempDir(), "tok.mp3")
	require.NoError(t, os.WriteFile(src, []byte("audio"), 0644))
	outDir := t.TempDir()

	d := &fileDeliverer{dir: outDir}
	err := d.Deliver(context.Background(), &domain.ResolvedOutput{AbsolutePath: src, DisplayName: "My_Song_Live.mp3"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "My_Song_Live.mp3"), d.path)
	data, err := os.ReadFile(d.path)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))
	assert.FileExists(t, src)
}

func TestFileDelivererLongMultibyteTitle(t *testing.T) {
	src := filepath.Join(t.TempDir(), "tok.mp3")
	require.NoError(t, os.WriteFile(src, []byte("audio"), 0644))

	name := sanitize.Filename(strings.Repeat("日", 150)) + ".mp3"
	d := &fileDeliverer{dir: t.TempDir()}
	require.NoError(t, d.Deliver(context.Background(), &domain.ResolvedOutput{AbsolutePath: src, DisplayName: name}))

	assert.FileExists(t, d.path)
	assert.LessOrEqual(t, len(filepath.Base(d.path)), 255)
}

func TestFileDelivererMissingSource(t *testing.T) {
	d := &fileDeliverer{dir: t.TempDir()}
	err := d.Deliver(context.Background(), &domain.ResolvedOutput{AbsolutePath: "/nonexistent/tok.mp3", DisplayName: "x.mp3"})

	assert.Error(t, err)
	assert.Empty(t, d.path)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["extract"])
}
