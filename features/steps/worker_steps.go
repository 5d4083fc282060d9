//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"transcode-worker/cmd"
	"transcode-worker/infrastructure/config"
	"transcode-worker/infrastructure/filesystem"

	"github.com/cucumber/godog"
	"go.uber.org/zap"
)

// workerContext holds test state for worker scenarios
type workerContext struct {
	workDir    string
	queue      *fakeQueue
	store      *fakeStore
	transcoder *fakeTranscoder
	config     *config.Config
	output     *bytes.Buffer
	cycles     int
	err        error
}

// SharedWorkerContext is reset before each scenario via Before hook
var SharedWorkerContext *workerContext

func getWorkerContext() *workerContext {
	return SharedWorkerContext
}

func InitializeWorkerScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		workDir, err := os.MkdirTemp("", "worker-test-*")
		if err != nil {
			return c, err
		}
		cfg := config.Default()
		cfg.Queue.Name = "uploads"
		cfg.Queue.PollInterval = time.Millisecond
		SharedWorkerContext = &workerContext{
			workDir:    workDir,
			queue:      newFakeQueue(),
			store:      newFakeStore(),
			transcoder: &fakeTranscoder{failing: make(map[string]bool), writeOutput: true},
			config:     cfg,
			output:     &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if w := getWorkerContext(); w != nil && w.workDir != "" {
			os.RemoveAll(w.workDir)
		}
		SharedWorkerContext = nil
		return c, nil
	})

	ctx.Step(`^the object "([^"]*)" exists in bucket "([^"]*)"$`, theObjectExistsInBucket)
	ctx.Step(`^a "([^"]*)" notification for "([^"]*)" in bucket "([^"]*)" is queued$`, aNotificationIsQueued)
	ctx.Step(`^a malformed notification is queued$`, aMalformedNotificationIsQueued)
	ctx.Step(`^the queue is empty$`, theQueueIsEmpty)
	ctx.Step(`^ffmpeg fails for "([^"]*)"$`, ffmpegFailsFor)
	ctx.Step(`^the destination prefix is "([^"]*)"$`, theDestinationPrefixIs)
	ctx.Step(`^the audio extension is "([^"]*)"$`, theAudioExtensionIs)
	ctx.Step(`^stop on error is enabled$`, stopOnErrorIsEnabled)
	ctx.Step(`^I run the worker once$`, iRunTheWorkerOnce)
	ctx.Step(`^I watch the queue for (\d+) cycles?$`, iWatchTheQueueForCycles)
	ctx.Step(`^the worker should succeed$`, theWorkerShouldSucceed)
	ctx.Step(`^the worker should fail with "([^"]*)"$`, theWorkerShouldFailWith)
	ctx.Step(`^the worker output should contain "([^"]*)"$`, theWorkerOutputShouldContain)
	ctx.Step(`^bucket "([^"]*)" should contain "([^"]*)" with content type "([^"]*)"$`, bucketShouldContainWithContentType)
	ctx.Step(`^bucket "([^"]*)" should not contain "([^"]*)"$`, bucketShouldNotContain)
	ctx.Step(`^no messages should remain in the queue$`, noMessagesShouldRemainInTheQueue)
	ctx.Step(`^(\d+) messages? should remain in the queue$`, messagesShouldRemainInTheQueue)
	ctx.Step(`^the queue should have been polled with max (\d+) and no wait$`, theQueueShouldHaveBeenPolledWithMaxAndNoWait)
	ctx.Step(`^ffmpeg should not have been called$`, ffmpegShouldNotHaveBeenCalled)
	ctx.Step(`^the work directory should be empty$`, theWorkDirectoryShouldBeEmpty)
}

func notificationBody(eventName, bucket, key string) string {
	return fmt.Sprintf(`{"Records":[{"eventVersion":"2.1","eventSource":"aws:s3","eventName":%q,`+
		`"s3":{"bucket":{"name":%q},"object":{"key":%q,"size":1024}}}]}`, eventName, bucket, key)
}

func theObjectExistsInBucket(key, bucket string) error {
	getWorkerContext().store.put(bucket, key, []byte("RIFF....WAVE"))
	return nil
}

func aNotificationIsQueued(eventName, key, bucket string) error {
	getWorkerContext().queue.push(notificationBody(eventName, bucket, key))
	return nil
}

func aMalformedNotificationIsQueued() error {
	getWorkerContext().queue.push(`{"Records":[{"eventName":"ObjectCreated:Put"}]}`)
	return nil
}

func theQueueIsEmpty() error {
	if n := getWorkerContext().queue.remaining(); n != 0 {
		return fmt.Errorf("expected empty queue, %d messages queued", n)
	}
	return nil
}

func ffmpegFailsFor(name string) error {
	getWorkerContext().transcoder.failing[name] = true
	return nil
}

func theDestinationPrefixIs(prefix string) error {
	getWorkerContext().config.Storage.DestinationPrefix = prefix
	return nil
}

func theAudioExtensionIs(ext string) error {
	getWorkerContext().config.Transcode.Extension = ext
	return nil
}

func stopOnErrorIsEnabled() error {
	getWorkerContext().config.Worker.StopOnError = true
	return nil
}

func (w *workerContext) dependencies() *cmd.Dependencies {
	return &cmd.Dependencies{
		Queue:      w.queue,
		Store:      w.store,
		Transcoder: w.transcoder,
		Workspaces: filesystem.NewWorkspaces(w.workDir, false),
		Logger:     zap.NewNop(),
	}
}

func iRunTheWorkerOnce() error {
	w := getWorkerContext()
	w.err = cmd.RunOnceWithDependencies(context.Background(), w.dependencies(), w.config, w.output)
	return nil
}

func iWatchTheQueueForCycles(n int) error {
	w := getWorkerContext()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleep := func(ctx context.Context, d time.Duration) error {
		if w.cycles >= n {
			cancel()
			return ctx.Err()
		}
		w.cycles++
		return nil
	}

	w.err = cmd.RunWatchWithDependencies(ctx, w.dependencies(), w.config, sleep)
	return nil
}

func theWorkerShouldSucceed() error {
	if err := getWorkerContext().err; err != nil {
		return fmt.Errorf("expected success, got: %v", err)
	}
	return nil
}

func theWorkerShouldFailWith(text string) error {
	err := getWorkerContext().err
	if err == nil {
		return fmt.Errorf("expected error containing %q, got nil", text)
	}
	if !strings.Contains(err.Error(), text) {
		return fmt.Errorf("expected error containing %q, got: %v", text, err)
	}
	return nil
}

func theWorkerOutputShouldContain(text string) error {
	output := getWorkerContext().output.String()
	if !strings.Contains(output, text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, output)
	}
	return nil
}

func bucketShouldContainWithContentType(bucket, key, contentType string) error {
	obj, ok := getWorkerContext().store.get(bucket, key)
	if !ok {
		return fmt.Errorf("object %s/%s not found", bucket, key)
	}
	if obj.contentType != contentType {
		return fmt.Errorf("expected content type %q, got %q", contentType, obj.contentType)
	}
	return nil
}

func bucketShouldNotContain(bucket, key string) error {
	if _, ok := getWorkerContext().store.get(bucket, key); ok {
		return fmt.Errorf("object %s/%s should not exist", bucket, key)
	}
	return nil
}

func noMessagesShouldRemainInTheQueue() error {
	return messagesShouldRemainInTheQueue(0)
}

func messagesShouldRemainInTheQueue(n int) error {
	if got := getWorkerContext().queue.remaining(); got != n {
		return fmt.Errorf("expected %d messages in the queue, got %d", n, got)
	}
	return nil
}

func theQueueShouldHaveBeenPolledWithMaxAndNoWait(max int) error {
	receives := getWorkerContext().queue.receives
	if len(receives) == 0 {
		return fmt.Errorf("queue was never polled")
	}
	opts := receives[0]
	if opts.MaxMessages != max || opts.WaitTime != 0 {
		return fmt.Errorf("expected max %d and no wait, got %+v", max, opts)
	}
	return nil
}

func ffmpegShouldNotHaveBeenCalled() error {
	if n := len(getWorkerContext().transcoder.requests); n != 0 {
		return fmt.Errorf("expected no ffmpeg calls, got %d", n)
	}
	return nil
}

func theWorkDirectoryShouldBeEmpty() error {
	entries, err := os.ReadDir(getWorkerContext().workDir)
	if err != nil {
		return err
	}
	if len(entries) != 0 {
		return fmt.Errorf("expected empty work directory, found %d entries", len(entries))
	}
	return nil
}
