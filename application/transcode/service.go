package transcode

import (
	"context"
	"fmt"
	"time"

	"transcode-worker/domain/event"
	"transcode-worker/domain/media"
	"transcode-worker/domain/queue"
	"transcode-worker/domain/storage"

	"go.uber.org/zap"
)

// Options configures the pipeline
type Options struct {
	DestinationPrefix string
	Extension         string
	Quality           string
}

// Service runs one notification through download, transcode, upload and source removal
type Service struct {
	store      storage.ObjectStore
	transcoder media.Transcoder
	workspaces media.WorkspaceProvider
	opts       Options
	logger     *zap.Logger
}

// NewService creates a new transcode pipeline
func NewService(store storage.ObjectStore, transcoder media.Transcoder, workspaces media.WorkspaceProvider, opts Options, logger *zap.Logger) *Service {
	if opts.DestinationPrefix == "" {
		opts.DestinationPrefix = storage.DefaultDestinationPrefix
	}
	opts.Extension = media.NormalizeExtension(opts.Extension)
	if opts.Quality == "" {
		opts.Quality = media.DefaultQuality
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		transcoder: transcoder,
		workspaces: workspaces,
		opts:       opts,
		logger:     logger,
	}
}

// Result describes what happened to one notification
type Result struct {
	Record            *event.Record
	Skipped           bool
	SkipReason        string
	LocalPath         string
	OutputPath        string
	DestinationKey    string
	TranscodeDuration time.Duration
}

// Process decodes a queue message and runs its record through the pipeline
func (s *Service) Process(ctx context.Context, msg queue.Message) (*Result, error) {
	rec, err := event.Decode(msg.Body, msg.Attributes)
	if err != nil {
		return nil, fmt.Errorf("decode message %s: %w", msg.ID, err)
	}
	return s.ProcessRecord(ctx, rec)
}

// ProcessRecord runs the pipeline for an already decoded record.
// Each step runs only after the previous one succeeded.
func (s *Service) ProcessRecord(ctx context.Context, rec *event.Record) (*Result, error) {
	s.logger.Info("received event",
		zap.String("event", rec.EventName),
		zap.Any("record", rec.Raw),
	)
	s.logger.Info("bucket", zap.String("bucket", rec.BucketName))

	result := &Result{Record: rec}

	if !rec.Created() {
		return s.skip(result, "skipping event "+rec.EventName), nil
	}
	if storage.UnderPrefix(s.opts.DestinationPrefix, rec.ObjectKey) {
		return s.skip(result, "object is already under the destination prefix"), nil
	}

	name, err := storage.LocalName(rec.ObjectKey)
	if err != nil {
		return nil, err
	}

	ws, err := s.workspaces.Acquire()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Release(); err != nil {
			s.logger.Warn("workspace cleanup failed", zap.String("dir", ws.Dir()), zap.Error(err))
		}
	}()

	req, err := media.NewTranscodeRequest(ws.Path(name), s.opts.Extension, s.opts.Quality)
	if err != nil {
		return nil, err
	}
	result.LocalPath = req.InputPath
	result.OutputPath = req.OutputPath

	if err := s.store.Fetch(ctx, rec.BucketName, rec.ObjectKey, req.InputPath); err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", rec.BucketName, rec.ObjectKey, err)
	}

	start := time.Now()
	if err := s.transcoder.Transcode(ctx, req); err != nil {
		return nil, err
	}
	result.TranscodeDuration = time.Since(start)

	result.DestinationKey = storage.DestinationKey(s.opts.DestinationPrefix, req.OutputPath)
	if err := s.store.Store(ctx, rec.BucketName, req.OutputPath, result.DestinationKey, media.ContentTypeFor(s.opts.Extension)); err != nil {
		return nil, fmt.Errorf("store %s/%s: %w", rec.BucketName, result.DestinationKey, err)
	}

	if err := s.store.Remove(ctx, rec.BucketName, rec.ObjectKey); err != nil {
		return nil, fmt.Errorf("remove %s/%s: %w", rec.BucketName, rec.ObjectKey, err)
	}

	s.logger.Info("transcoded object",
		zap.String("bucket", rec.BucketName),
		zap.String("source", rec.ObjectKey),
		zap.String("destination", result.DestinationKey),
		zap.Duration("transcode", result.TranscodeDuration),
	)
	return result, nil
}

func (s *Service) skip(result *Result, reason string) *Result {
	s.logger.Warn(reason,
		zap.String("event", result.Record.EventName),
		zap.String("key", result.Record.ObjectKey),
	)
	result.Skipped = true
	result.SkipReason = reason
	return result
}
