package cmd

import (
	"context"
	"fmt"
	"os"

	"transcode-worker/domain/media"
	"transcode-worker/infrastructure/ffmpeg"
	"transcode-worker/infrastructure/filesystem"

	"github.com/spf13/cobra"
)

var (
	transcodeInput     string
	transcodeExtension string
	transcodeQuality   string
)

var transcodeCmd = &cobra.Command{
	Use:   "transcode",
	Short: "Extract audio from a local file",
	Long: `Run the same ffmpeg invocation the worker uses on a local file, without
touching the queue or object storage. The output is written next to the
input with the audio extension.

Example:
  transcode-worker transcode --input recording.mov
  transcode-worker transcode --input talk.wav --extension ogg --quality 4`,
	RunE: runTranscode,
}

func init() {
	rootCmd.AddCommand(transcodeCmd)
	transcodeCmd.Flags().StringVar(&transcodeInput, "input", "", "Path to the input media file (required)")
	transcodeCmd.Flags().StringVar(&transcodeExtension, "extension", "", "Audio extension (default from config or mp3)")
	transcodeCmd.Flags().StringVar(&transcodeQuality, "quality", "", "ffmpeg -q:a value (default from config or 0)")
	transcodeCmd.MarkFlagRequired("input")
}

func runTranscode(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	extension := transcodeExtension
	if extension == "" {
		extension = cfg.Transcode.Extension
	}
	quality := transcodeQuality
	if quality == "" {
		quality = cfg.Transcode.Quality
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	transcoder := ffmpeg.NewTranscoder(
		ffmpeg.WithFFmpegPath(cfg.Transcode.FFmpegPath),
		ffmpeg.WithLogger(logger),
	)

	return RunTranscodeWithDependencies(
		cmd.Context(),
		transcoder,
		filesystem.NewChecker(),
		transcodeInput,
		extension,
		quality,
		os.Stdout,
	)
}

// RunTranscodeWithDependencies runs the transcode command with injected dependencies (for testing)
func RunTranscodeWithDependencies(
	ctx context.Context,
	transcoder media.Transcoder,
	fileChecker media.FileChecker,
	inputPath string,
	extension string,
	quality string,
	output OutputWriter,
) error {
	if !fileChecker.Exists(inputPath) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	if err := verifyTranscoder(ctx, transcoder); err != nil {
		return err
	}

	req, err := media.NewTranscodeRequest(inputPath, media.NormalizeExtension(extension), quality)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Extracting audio from %s at quality %s...\n", req.InputPath, req.Quality)

	if err := transcoder.Transcode(ctx, req); err != nil {
		return err
	}

	fmt.Fprintf(output, "Successfully created: %s\n", req.OutputPath)
	return nil
}
