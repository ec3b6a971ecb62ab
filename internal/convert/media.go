package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fileconverter/internal/domain"
)

// Transcoder drives ffmpeg for the synchronous audio/video endpoints. It is
// not a job adapter: media requests transcode straight into the response.
type Transcoder struct {
	binary string
	exec   Executor
}

// TranscoderOption configures the transcoder.
type TranscoderOption func(*Transcoder)

// WithTranscoderExecutor injects a custom executor (primarily for tests).
func WithTranscoderExecutor(exec Executor) TranscoderOption {
	return func(t *Transcoder) {
		if exec != nil {
			t.exec = exec
		}
	}
}

// NewTranscoder constructs an ffmpeg transcoder.
func NewTranscoder(binary string, opts ...TranscoderOption) (*Transcoder, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("transcoder: binary required")
	}
	t := &Transcoder{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// TranscodeAudio converts an audio file into the container named by
// outputFormat, writing to outputPath.
func (t *Transcoder) TranscodeAudio(ctx context.Context, inputPath, outputPath, outputFormat string) error {
	args := []string{
		"-y",
		"-i", inputPath,
		"-vn",
		"-f", strings.ToLower(outputFormat),
		outputPath,
	}
	return t.run(ctx, args)
}

// TranscodeVideo converts a video file, picking the codec profile by target
// container: H.264/AAC for mp4, VP8/Vorbis for everything else.
func (t *Transcoder) TranscodeVideo(ctx context.Context, inputPath, outputPath, outputFormat string) error {
	args := []string{"-y", "-i", inputPath}
	if strings.ToLower(outputFormat) == "mp4" {
		args = append(args,
			"-c:v", "libx264",
			"-c:a", "aac",
			"-preset", "veryfast",
			"-b:a", "128k",
		)
	} else {
		args = append(args,
			"-c:v", "libvpx",
			"-c:a", "libvorbis",
			"-b:v", "1M",
		)
	}
	args = append(args, outputPath)
	return t.run(ctx, args)
}

func (t *Transcoder) run(ctx context.Context, args []string) error {
	output, err := t.exec.Run(ctx, t.binary, args)
	if err != nil {
		return fmt.Errorf("%w: ffmpeg: %v: %s", domain.ErrConversion, err, strings.TrimSpace(string(output)))
	}
	return nil
}
