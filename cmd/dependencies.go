package cmd

import (
	"context"
	"fmt"
	"time"

	"transcode-worker/application/transcode"
	"transcode-worker/application/worker"
	"transcode-worker/domain/media"
	"transcode-worker/domain/queue"
	"transcode-worker/domain/storage"
	"transcode-worker/infrastructure/config"
	"transcode-worker/infrastructure/ffmpeg"
	"transcode-worker/infrastructure/filesystem"
	"transcode-worker/infrastructure/gcs"
	"transcode-worker/infrastructure/logging"
	"transcode-worker/infrastructure/minio"
	"transcode-worker/infrastructure/pubsub"
	"transcode-worker/infrastructure/redisqueue"
	"transcode-worker/infrastructure/s3"
	"transcode-worker/infrastructure/sqs"

	"go.uber.org/zap"
)

// Dependencies holds the collaborators of the worker commands
type Dependencies struct {
	Queue      queue.Queue
	Store      storage.ObjectStore
	Transcoder media.Transcoder
	Workspaces media.WorkspaceProvider
	Logger     *zap.Logger
	Recorder   worker.Recorder
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
}

// buildDependencies creates production implementations for cfg.
// The returned cleanup closes any open connections.
func buildDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, func(), error) {
	q, closeQueue, err := buildQueue(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		closeQueue()
		return nil, nil, err
	}

	return &Dependencies{
		Queue: q,
		Store: store,
		Transcoder: ffmpeg.NewTranscoder(
			ffmpeg.WithFFmpegPath(cfg.Transcode.FFmpegPath),
			ffmpeg.WithLogger(logger),
		),
		Workspaces: filesystem.NewWorkspaces(cfg.Transcode.WorkDir, cfg.Transcode.KeepFiles),
		Logger:     logger,
	}, closeQueue, nil
}

type requeuer interface {
	Requeue(ctx context.Context) (int, error)
}

// requeueInFlight returns messages stranded by a previous run to the queue
func requeueInFlight(ctx context.Context, q requeuer, keep bool, logger *zap.Logger) error {
	if keep {
		return nil
	}
	n, err := q.Requeue(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("requeued in-flight messages", zap.Int("count", n))
	}
	return nil
}

func buildQueue(ctx context.Context, cfg *config.Config, logger *zap.Logger) (queue.Queue, func(), error) {
	noop := func() {}
	qc := cfg.Queue

	switch qc.Backend {
	case config.BackendSQS:
		client, err := sqs.NewClient(ctx, sqs.Config{Region: qc.Region, Endpoint: qc.Endpoint})
		if err != nil {
			return nil, nil, err
		}
		q, err := sqs.NewQueue(ctx, client, qc.Name, qc.URL, logger)
		if err != nil {
			return nil, nil, err
		}
		return q, noop, nil

	case config.BackendRedis:
		client, err := redisqueue.NewClient(ctx, redisqueue.Config{
			Addr:     qc.Redis.Addr,
			Password: qc.Redis.Password,
			DB:       qc.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		q, err := redisqueue.NewQueue(client, qc.Name, logger)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		if err := requeueInFlight(ctx, q, qc.Redis.KeepInFlight, logger); err != nil {
			client.Close()
			return nil, nil, err
		}
		return q, func() { client.Close() }, nil

	case config.BackendPubSub:
		q, err := pubsub.NewQueue(ctx, pubsub.Config{
			Project:         qc.PubSub.Project,
			Subscription:    qc.Name,
			CredentialsFile: qc.PubSub.CredentialsFile,
			TokenFile:       qc.PubSub.TokenFile,
		}, pubsub.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return q, noop, nil
	}

	return nil, nil, fmt.Errorf("unknown queue backend %q", qc.Backend)
}

func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.ObjectStore, error) {
	sc := cfg.Storage

	switch sc.Backend {
	case config.BackendS3:
		client, err := s3.NewClient(ctx, s3.Config{Region: sc.Region, Endpoint: sc.Endpoint})
		if err != nil {
			return nil, err
		}
		return s3.NewStore(client, logger), nil

	case config.BackendMinio:
		client, err := minio.NewClient(minio.Config{
			Endpoint:  sc.Endpoint,
			AccessKey: sc.AccessKey,
			SecretKey: sc.SecretKey,
			Region:    sc.Region,
			UseSSL:    sc.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return minio.NewStore(client, logger), nil

	case config.BackendGCS:
		return gcs.NewStore(ctx, sc.GCS.CredentialsFile,
			gcs.WithTokenFile(cfg.GCSTokenFile()),
			gcs.WithLogger(logger),
		)
	}

	return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
}

func newPipeline(deps *Dependencies, cfg *config.Config) *transcode.Service {
	return transcode.NewService(deps.Store, deps.Transcoder, deps.Workspaces, transcode.Options{
		DestinationPrefix: cfg.Storage.DestinationPrefix,
		Extension:         cfg.Transcode.Extension,
		Quality:           cfg.Transcode.Quality,
	}, deps.Logger)
}

func newWorker(deps *Dependencies, cfg *config.Config, sleep func(context.Context, time.Duration) error) *worker.Service {
	opts := []worker.ServiceOption{
		worker.WithLogger(deps.Logger),
		worker.WithRecorder(deps.Recorder),
	}
	if sleep != nil {
		opts = append(opts, worker.WithSleep(sleep))
	}
	return worker.NewService(deps.Queue, newPipeline(deps, cfg), worker.Options{
		PollInterval: cfg.Queue.PollInterval,
		WaitTime:     cfg.Queue.WaitTime,
		MaxMessages:  cfg.Queue.MaxMessages,
		StopOnError:  cfg.Worker.StopOnError,
	}, opts...)
}

// verifyTranscoder runs the transcoder's installation check when it has one
func verifyTranscoder(ctx context.Context, t media.Transcoder) error {
	verifiable, ok := t.(interface{ VerifyInstalled(context.Context) error })
	if !ok {
		return nil
	}
	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := verifiable.VerifyInstalled(verifyCtx); err != nil {
		return fmt.Errorf("ffmpeg verification failed: %w", err)
	}
	return nil
}
