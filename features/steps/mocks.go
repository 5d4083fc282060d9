//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"transcode-worker/domain/media"
	"transcode-worker/domain/queue"
)

// fakeQueue is an in-memory queue with SQS-like visibility: received
// messages stay in flight until deleted
type fakeQueue struct {
	mu       sync.Mutex
	pending  []queue.Message
	inFlight map[string]queue.Message
	deleted  []string
	receives []queue.ReceiveOptions
	nextID   int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{inFlight: make(map[string]queue.Message)}
}

func (q *fakeQueue) push(body string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	id := fmt.Sprintf("msg-%d", q.nextID)
	q.pending = append(q.pending, queue.Message{ID: id, Body: body, ReceiptHandle: "rh-" + id})
}

func (q *fakeQueue) Receive(ctx context.Context, opts queue.ReceiveOptions) ([]queue.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.receives = append(q.receives, opts)

	n := opts.MaxMessages
	if n > len(q.pending) {
		n = len(q.pending)
	}
	batch := q.pending[:n]
	q.pending = q.pending[n:]
	for _, m := range batch {
		q.inFlight[m.ReceiptHandle] = m
	}
	return batch, nil
}

func (q *fakeQueue) Delete(ctx context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inFlight[receiptHandle]; !ok {
		return fmt.Errorf("receipt handle %s is not in flight", receiptHandle)
	}
	delete(q.inFlight, receiptHandle)
	q.deleted = append(q.deleted, receiptHandle)
	return nil
}

func (q *fakeQueue) remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) + len(q.inFlight)
}

type storedObject struct {
	data        []byte
	contentType string
}

// fakeStore keeps objects in memory keyed by bucket/key
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]storedObject
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]storedObject)}
}

func (s *fakeStore) put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = storedObject{data: data}
}

func (s *fakeStore) get(bucket, key string) (storedObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[bucket+"/"+key]
	return obj, ok
}

func (s *fakeStore) Fetch(ctx context.Context, bucket, key, localPath string) error {
	obj, ok := s.get(bucket, key)
	if !ok {
		return fmt.Errorf("NoSuchKey: %s/%s", bucket, key)
	}
	return os.WriteFile(localPath, obj.data, 0644)
}

func (s *fakeStore) Store(ctx context.Context, bucket, localPath, key, contentType string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = storedObject{data: data, contentType: contentType}
	return nil
}

func (s *fakeStore) Remove(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+key)
	return nil
}

// fakeTranscoder records requests instead of running ffmpeg. With
// writeOutput it leaves a marker file at the output path.
type fakeTranscoder struct {
	failing     map[string]bool
	writeOutput bool
	requests    []*media.TranscodeRequest
}

func (t *fakeTranscoder) Transcode(ctx context.Context, req *media.TranscodeRequest) error {
	t.requests = append(t.requests, req)
	if t.failing[filepath.Base(req.InputPath)] {
		return &media.TranscodeError{
			Input:  req.InputPath,
			Output: req.OutputPath,
			Stderr: "Invalid data found when processing input",
			Err:    errors.New("exit status 1"),
		}
	}
	if !t.writeOutput {
		return nil
	}
	return os.WriteFile(req.OutputPath, []byte("ID3 audio"), 0644)
}

// mockFileChecker answers Exists from a fixed set
type mockFileChecker struct {
	existingFiles map[string]bool
}

func (m *mockFileChecker) Exists(path string) bool {
	return m.existingFiles[path]
}
