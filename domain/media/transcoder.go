package media

import (
	"context"
	"fmt"
	"strings"
)

// Transcoder defines the interface for audio extraction operations
// This is a port that can be implemented by different infrastructure adapters
type Transcoder interface {
	// Transcode writes the audio stream of req.InputPath to req.OutputPath
	Transcode(ctx context.Context, req *TranscodeRequest) error
}

// FileChecker abstracts file existence checks
type FileChecker interface {
	// Exists returns true if the file exists
	Exists(path string) bool
}

// TranscodeError reports a failed encoder run along with its diagnostics
type TranscodeError struct {
	Input  string
	Output string
	Stderr string
	Err    error
}

func (e *TranscodeError) Error() string {
	msg := fmt.Sprintf("failed to encode %s to %s: %v", e.Input, e.Output, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}
