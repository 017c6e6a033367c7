package main

import (
	"github.com/emanuelef/yt-mp3-api-go/internal/infra/audio"
	"github.com/emanuelef/yt-mp3-api-go/internal/service/extractor"
	"github.com/emanuelef/yt-mp3-api-go/internal/service/pipeline"
	"github.com/emanuelef/yt-mp3-api-go/internal/service/resolver"
)

// newExtractor builds the yt-dlp invoker from configuration.
func (a *app) newExtractor() *extractor.Extractor {
	return extractor.New(&extractor.Config{
		DownloadDir:        a.cfg.DownloadDir,
		YtDlpPath:          a.cfg.YtDlpPath,
		FFmpegPath:         a.cfg.FFmpegPath,
		Codec:              a.cfg.AudioFormat,
		BitrateKbps:        a.cfg.AudioBitrateKbps,
		InsecureSkipVerify: a.cfg.NoCheckCertificate,
		Timeout:            a.cfg.ExtractTimeout,
	}, nil, a.logger)
}

// newPipeline wires extractor, resolver and finalizer. recorder may be nil.
func (a *app) newPipeline(ex *extractor.Extractor, recorder pipeline.Recorder) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithFinalizer(audio.NewFinalizer(a.cfg.TagTitle, a.logger)),
	}
	if recorder != nil {
		opts = append(opts, pipeline.WithRecorder(recorder))
	}

	return pipeline.New(ex, resolver.New(ex.Extension(), a.logger), a.logger, opts...)
}
