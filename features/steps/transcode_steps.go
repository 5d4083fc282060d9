//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"transcode-worker/cmd"

	"github.com/cucumber/godog"
)

// transcodeContext holds test state for local transcode scenarios
type transcodeContext struct {
	inputPath   string
	transcoder  *fakeTranscoder
	fileChecker *mockFileChecker
	output      *bytes.Buffer
	err         error
}

// SharedTranscodeContext is reset before each scenario via Before hook
var SharedTranscodeContext *transcodeContext

func getTranscodeContext() *transcodeContext {
	return SharedTranscodeContext
}

func InitializeTranscodeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		SharedTranscodeContext = &transcodeContext{
			transcoder: &fakeTranscoder{failing: make(map[string]bool)},
			fileChecker: &mockFileChecker{
				existingFiles: make(map[string]bool),
			},
			output: &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		SharedTranscodeContext = nil
		return c, nil
	})

	ctx.Step(`^a local media file "([^"]*)"$`, aLocalMediaFile)
	ctx.Step(`^no local media file exists at "([^"]*)"$`, noLocalMediaFileExistsAt)
	ctx.Step(`^I transcode it with extension "([^"]*)" and quality "([^"]*)"$`, iTranscodeItWithExtensionAndQuality)
	ctx.Step(`^the transcoded file should be "([^"]*)"$`, theTranscodedFileShouldBe)
	ctx.Step(`^ffmpeg should have been asked for quality "([^"]*)"$`, ffmpegShouldHaveBeenAskedForQuality)
	ctx.Step(`^the transcode should fail with "([^"]*)"$`, theTranscodeShouldFailWith)
}

func aLocalMediaFile(path string) error {
	t := getTranscodeContext()
	t.inputPath = path
	t.fileChecker.existingFiles[path] = true
	return nil
}

func noLocalMediaFileExistsAt(path string) error {
	t := getTranscodeContext()
	t.inputPath = path
	t.fileChecker.existingFiles[path] = false
	return nil
}

func iTranscodeItWithExtensionAndQuality(extension, quality string) error {
	t := getTranscodeContext()
	t.err = cmd.RunTranscodeWithDependencies(
		context.Background(),
		t.transcoder,
		t.fileChecker,
		t.inputPath,
		extension,
		quality,
		t.output,
	)
	return nil
}

func theTranscodedFileShouldBe(expected string) error {
	t := getTranscodeContext()
	if t.err != nil {
		return fmt.Errorf("transcode failed: %v", t.err)
	}
	if len(t.transcoder.requests) != 1 {
		return fmt.Errorf("expected 1 transcode, got %d", len(t.transcoder.requests))
	}
	if got := t.transcoder.requests[0].OutputPath; filepath.Clean(got) != filepath.Clean(expected) {
		return fmt.Errorf("expected output %q, got %q", expected, got)
	}
	if !strings.Contains(t.output.String(), "Successfully created: "+expected) {
		return fmt.Errorf("expected success message, got:\n%s", t.output.String())
	}
	return nil
}

func ffmpegShouldHaveBeenAskedForQuality(quality string) error {
	t := getTranscodeContext()
	if len(t.transcoder.requests) == 0 {
		return fmt.Errorf("ffmpeg was not called")
	}
	if got := t.transcoder.requests[0].Quality; got != quality {
		return fmt.Errorf("expected quality %q, got %q", quality, got)
	}
	return nil
}

func theTranscodeShouldFailWith(text string) error {
	t := getTranscodeContext()
	if t.err == nil {
		return fmt.Errorf("expected error containing %q, got nil", text)
	}
	if !strings.Contains(t.err.Error(), text) {
		return fmt.Errorf("expected error containing %q, got: %v", text, t.err)
	}
	return nil
}
