package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"transcode-worker/domain/media"

	"go.uber.org/zap"
)

// Transcoder implements media.Transcoder using ffmpeg
type Transcoder struct {
	ffmpegPath string
	runner     CommandRunner
	logger     *zap.Logger
}

// TranscoderOption is a functional option for configuring Transcoder
type TranscoderOption func(*Transcoder)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) TranscoderOption {
	return func(t *Transcoder) {
		if path != "" {
			t.ffmpegPath = path
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) TranscoderOption {
	return func(t *Transcoder) {
		t.runner = runner
	}
}

// WithLogger sets the logger used to report each invocation
func WithLogger(logger *zap.Logger) TranscoderOption {
	return func(t *Transcoder) {
		t.logger = logger
	}
}

// NewTranscoder creates a new FFmpeg-based transcoder
func NewTranscoder(opts ...TranscoderOption) *Transcoder {
	t := &Transcoder{
		ffmpegPath: "ffmpeg",
		runner:     &ExecCommandRunner{},
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Args returns the ffmpeg arguments for req: read the input, keep only the
// audio stream at the requested variable quality, write the output
func Args(req *media.TranscodeRequest) []string {
	return []string{
		"-i", req.InputPath,
		"-q:a", req.Quality,
		"-map", "a",
		req.OutputPath,
	}
}

// Transcode implements media.Transcoder
func (t *Transcoder) Transcode(ctx context.Context, req *media.TranscodeRequest) error {
	args := Args(req)
	t.logger.Info("running ffmpeg",
		zap.String("command", t.ffmpegPath+" "+strings.Join(args, " ")),
	)

	if err := t.runner.Run(ctx, t.ffmpegPath, args...); err != nil {
		tErr := &media.TranscodeError{Input: req.InputPath, Output: req.OutputPath, Err: err}
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			tErr.Stderr = cmdErr.Stderr
		}
		return tErr
	}

	return nil
}

// VerifyInstalled checks that ffmpeg is available
func (t *Transcoder) VerifyInstalled(ctx context.Context) error {
	_, err := t.runner.Output(ctx, t.ffmpegPath, "-version")
	if err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// Ensure Transcoder implements media.Transcoder
var _ media.Transcoder = (*Transcoder)(nil)
