package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"transcode-worker/domain/event"
	"transcode-worker/domain/media"
	"transcode-worker/domain/queue"
	"transcode-worker/infrastructure/filesystem"
)

// --- Mock implementations for testing ---

// callLog records the order in which collaborators are used
type callLog struct {
	calls []string
}

func (l *callLog) add(call string) {
	l.calls = append(l.calls, call)
}

// mockStore implements storage.ObjectStore for testing
type mockStore struct {
	log       *callLog
	fetchErr  error
	storeErr  error
	removeErr error
	stored    map[string]string // key -> content type
}

func (m *mockStore) Fetch(ctx context.Context, bucket, key, localPath string) error {
	m.log.add("fetch " + bucket + "/" + key + " -> " + filepath.Base(localPath))
	if m.fetchErr != nil {
		return m.fetchErr
	}
	return os.WriteFile(localPath, []byte("RIFF....WAVE"), 0644)
}

func (m *mockStore) Store(ctx context.Context, bucket, localPath, key, contentType string) error {
	m.log.add("store " + filepath.Base(localPath) + " -> " + bucket + "/" + key)
	if m.storeErr != nil {
		return m.storeErr
	}
	if m.stored == nil {
		m.stored = make(map[string]string)
	}
	m.stored[key] = contentType
	return nil
}

func (m *mockStore) Remove(ctx context.Context, bucket, key string) error {
	m.log.add("remove " + bucket + "/" + key)
	return m.removeErr
}

// mockTranscoder implements media.Transcoder for testing
type mockTranscoder struct {
	log       *callLog
	failError error
	requests  []*media.TranscodeRequest
}

func (m *mockTranscoder) Transcode(ctx context.Context, req *media.TranscodeRequest) error {
	m.log.add("transcode " + filepath.Base(req.InputPath) + " -> " + filepath.Base(req.OutputPath))
	m.requests = append(m.requests, req)
	if m.failError != nil {
		return &media.TranscodeError{Input: req.InputPath, Output: req.OutputPath, Stderr: "boom", Err: m.failError}
	}
	return os.WriteFile(req.OutputPath, []byte("ID3"), 0644)
}

// --- Helper functions ---

type fixture struct {
	log        *callLog
	store      *mockStore
	transcoder *mockTranscoder
	workRoot   string
	service    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := &callLog{}
	f := &fixture{
		log:        log,
		store:      &mockStore{log: log},
		transcoder: &mockTranscoder{log: log},
		workRoot:   t.TempDir(),
	}
	f.service = NewService(f.store, f.transcoder, filesystem.NewWorkspaces(f.workRoot, false), Options{}, nil)
	return f
}

func (f *fixture) assertWorkspaceEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.workRoot)
	if err != nil {
		t.Fatalf("read work root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected workspaces to be released, found %d entries", len(entries))
	}
}

func s3Message(eventName, bucket, key string) queue.Message {
	return queue.Message{
		ID:            "msg-1",
		ReceiptHandle: "receipt-1",
		Body: `{"Records":[{"eventName":"` + eventName + `","s3":{"bucket":{"name":"` + bucket +
			`"},"object":{"key":"` + key + `"}}}]}`,
	}
}

// --- Tests ---

func TestService_Process_CreatedEvent(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Process(context.Background(), s3Message("ObjectCreated:Put", "inbox", "uploads/clip.wav"))
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}

	wantCalls := []string{
		"fetch inbox/uploads/clip.wav -> clip.wav",
		"transcode clip.wav -> clip.mp3",
		"store clip.mp3 -> inbox/audio/clip.mp3",
		"remove inbox/uploads/clip.wav",
	}
	if !reflect.DeepEqual(f.log.calls, wantCalls) {
		t.Errorf("calls = %v\nwant %v", f.log.calls, wantCalls)
	}

	if result.Skipped {
		t.Error("result should not be skipped")
	}
	if result.DestinationKey != "audio/clip.mp3" {
		t.Errorf("DestinationKey = %q, want audio/clip.mp3", result.DestinationKey)
	}
	if f.store.stored["audio/clip.mp3"] != media.MimeTypeMP3 {
		t.Errorf("content type = %q, want %q", f.store.stored["audio/clip.mp3"], media.MimeTypeMP3)
	}
	if f.transcoder.requests[0].Quality != media.DefaultQuality {
		t.Errorf("quality = %q, want %q", f.transcoder.requests[0].Quality, media.DefaultQuality)
	}
	f.assertWorkspaceEmpty(t)
}

func TestService_Process_SkipsNonCreatedEvent(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Process(context.Background(), s3Message("ObjectRemoved:Delete", "inbox", "clip.wav"))
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}
	if !result.Skipped {
		t.Fatal("expected result to be skipped")
	}
	if !strings.Contains(result.SkipReason, "ObjectRemoved:Delete") {
		t.Errorf("SkipReason = %q, want it to name the event", result.SkipReason)
	}
	if len(f.log.calls) != 0 {
		t.Errorf("expected no transfer or transcode, got %v", f.log.calls)
	}
	f.assertWorkspaceEmpty(t)
}

func TestService_Process_SkipsDestinationPrefix(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Process(context.Background(), s3Message("ObjectCreated:Put", "inbox", "audio/clip.mp3"))
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}
	if !result.Skipped {
		t.Fatal("uploads under the destination prefix should be skipped")
	}
	if len(f.log.calls) != 0 {
		t.Errorf("expected no calls, got %v", f.log.calls)
	}
}

func TestService_Process_TranscodeFailure(t *testing.T) {
	f := newFixture(t)
	f.transcoder.failError = errors.New("exit status 1")

	_, err := f.service.Process(context.Background(), s3Message("ObjectCreated:Put", "inbox", "clip.wav"))
	if err == nil {
		t.Fatal("Process() expected error, got nil")
	}

	var tErr *media.TranscodeError
	if !errors.As(err, &tErr) {
		t.Fatalf("error = %v, want *media.TranscodeError", err)
	}
	if !strings.Contains(err.Error(), "clip.wav") || !strings.Contains(err.Error(), "clip.mp3") {
		t.Errorf("error should mention input and output paths, got %q", err.Error())
	}

	wantCalls := []string{
		"fetch inbox/clip.wav -> clip.wav",
		"transcode clip.wav -> clip.mp3",
	}
	if !reflect.DeepEqual(f.log.calls, wantCalls) {
		t.Errorf("calls = %v, want %v (no upload, no source removal)", f.log.calls, wantCalls)
	}
	f.assertWorkspaceEmpty(t)
}

func TestService_Process_StepFailures(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(f *fixture)
		wantCalls   int
		errContains string
	}{
		{
			name:        "fetch fails",
			setup:       func(f *fixture) { f.store.fetchErr = errors.New("NoSuchKey") },
			wantCalls:   1,
			errContains: "fetch inbox/clip.wav",
		},
		{
			name:        "store fails",
			setup:       func(f *fixture) { f.store.storeErr = errors.New("AccessDenied") },
			wantCalls:   3,
			errContains: "store inbox/audio/clip.mp3",
		},
		{
			name:        "remove fails",
			setup:       func(f *fixture) { f.store.removeErr = errors.New("AccessDenied") },
			wantCalls:   4,
			errContains: "remove inbox/clip.wav",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			_, err := f.service.Process(context.Background(), s3Message("ObjectCreated:Put", "inbox", "clip.wav"))
			if err == nil {
				t.Fatal("Process() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.errContains)
			}
			if len(f.log.calls) != tt.wantCalls {
				t.Errorf("calls = %v, want %d calls", f.log.calls, tt.wantCalls)
			}
			f.assertWorkspaceEmpty(t)
		})
	}
}

func TestService_Process_MalformedMessage(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Process(context.Background(), queue.Message{ID: "m", Body: `{"Records":[]}`})
	if !errors.Is(err, event.ErrMalformed) {
		t.Fatalf("Process() error = %v, want ErrMalformed", err)
	}
	if len(f.log.calls) != 0 {
		t.Errorf("expected no calls, got %v", f.log.calls)
	}
}

func TestService_Process_SameBasenameDifferentDirectories(t *testing.T) {
	f := newFixture(t)

	for _, key := range []string{"a/clip.wav", "b/clip.wav"} {
		if _, err := f.service.Process(context.Background(), s3Message("ObjectCreated:Put", "inbox", key)); err != nil {
			t.Fatalf("Process(%s) unexpected error: %v", key, err)
		}
	}

	first := f.transcoder.requests[0].InputPath
	second := f.transcoder.requests[1].InputPath
	if first == second {
		t.Errorf("both objects were downloaded to %s", first)
	}
}

func TestService_Process_CustomOptions(t *testing.T) {
	log := &callLog{}
	store := &mockStore{log: log}
	tc := &mockTranscoder{log: log}
	svc := NewService(store, tc, filesystem.NewWorkspaces(t.TempDir(), false), Options{
		DestinationPrefix: "podcasts",
		Extension:         ".m4a",
		Quality:           "3",
	}, nil)

	result, err := svc.Process(context.Background(), s3Message("ObjectCreated:CompleteMultipartUpload", "inbox", "ep1.mov"))
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}
	if result.DestinationKey != "podcasts/ep1.m4a" {
		t.Errorf("DestinationKey = %q, want podcasts/ep1.m4a", result.DestinationKey)
	}
	if store.stored["podcasts/ep1.m4a"] != media.MimeTypeM4A {
		t.Errorf("content type = %q, want %q", store.stored["podcasts/ep1.m4a"], media.MimeTypeM4A)
	}
	if tc.requests[0].Quality != "3" {
		t.Errorf("quality = %q, want 3", tc.requests[0].Quality)
	}
}
