package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultAudioExtension is the container written when none is configured
const DefaultAudioExtension = "mp3"

// DefaultQuality selects the encoder's best variable bitrate setting
const DefaultQuality = "0"

// TranscodeRequest describes one audio extraction from a local media file
type TranscodeRequest struct {
	InputPath  string
	OutputPath string
	Quality    string
}

// NewTranscodeRequest creates a request whose output sits next to the input,
// sharing its base name and carrying the audio extension
func NewTranscodeRequest(inputPath, extension, quality string) (*TranscodeRequest, error) {
	if inputPath == "" {
		return nil, fmt.Errorf("input path is required")
	}

	if quality == "" {
		quality = DefaultQuality
	}

	outputPath := OutputPathFor(inputPath, extension)
	if filepath.Clean(outputPath) == filepath.Clean(inputPath) {
		return nil, fmt.Errorf("input %s already has the .%s extension", inputPath, NormalizeExtension(extension))
	}

	return &TranscodeRequest{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Quality:    quality,
	}, nil
}

// OutputPathFor swaps the extension of inputPath for the audio extension.
// "clip.wav" becomes "clip.mp3"; a file without an extension gains one.
func OutputPathFor(inputPath, extension string) string {
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return base + "." + NormalizeExtension(extension)
}

// NormalizeExtension strips a leading dot and falls back to the default
func NormalizeExtension(extension string) string {
	ext := strings.TrimPrefix(strings.TrimSpace(extension), ".")
	if ext == "" {
		return DefaultAudioExtension
	}
	return strings.ToLower(ext)
}
