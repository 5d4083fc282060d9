package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"transcode-worker/application/transcode"
	"transcode-worker/domain/queue"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 600 * time.Second
	DefaultWaitTime     = 20 * time.Second
	DefaultMaxMessages  = 10
)

// Outcome labels a processed message
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Processor runs one message through the pipeline
type Processor interface {
	Process(ctx context.Context, msg queue.Message) (*transcode.Result, error)
}

// Recorder receives counters from the loop
type Recorder interface {
	MessagesReceived(n int)
	MessageProcessed(outcome Outcome)
	Acknowledged(err error)
	TranscodeDuration(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) MessagesReceived(int)            {}
func (nopRecorder) MessageProcessed(Outcome)        {}
func (nopRecorder) Acknowledged(error)              {}
func (nopRecorder) TranscodeDuration(time.Duration) {}

// Options configures the poll loop
type Options struct {
	PollInterval time.Duration
	WaitTime     time.Duration
	MaxMessages  int
	StopOnError  bool
}

// Report summarizes a single receive cycle
type Report struct {
	Received  int
	Succeeded int
	Skipped   int
	Failed    int
	AckFailed int
}

// Service drives the queue: receive, process, acknowledge
type Service struct {
	queue     queue.Queue
	processor Processor
	opts      Options
	logger    *zap.Logger
	recorder  Recorder
	sleep     func(ctx context.Context, d time.Duration) error
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithSleep replaces the wait between cycles (for testing)
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ServiceOption {
	return func(s *Service) {
		s.sleep = sleep
	}
}

// NewService creates a new worker
func NewService(q queue.Queue, processor Processor, opts Options, options ...ServiceOption) *Service {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.WaitTime < 0 {
		opts.WaitTime = 0
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	s := &Service{
		queue:     q,
		processor: processor,
		opts:      opts,
		logger:    zap.NewNop(),
		recorder:  nopRecorder{},
		sleep:     sleepContext,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// RunOnce receives at most one message without waiting, processes it and
// acknowledges it whatever the outcome. An empty queue is not an error.
func (s *Service) RunOnce(ctx context.Context) (*Report, error) {
	msgs, err := s.queue.Receive(ctx, queue.ReceiveOptions{MaxMessages: 1})
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}

	report := &Report{Received: len(msgs)}
	s.recorder.MessagesReceived(len(msgs))
	if len(msgs) == 0 {
		s.logger.Info("no messages in queue")
		return report, nil
	}

	return report, s.handle(ctx, msgs[0], report)
}

// Run polls until ctx is cancelled. Each cycle sleeps for the poll interval,
// long-polls for a batch and handles the messages one at a time.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("worker started",
		zap.Duration("poll_interval", s.opts.PollInterval),
		zap.Duration("wait_time", s.opts.WaitTime),
		zap.Int("max_messages", s.opts.MaxMessages),
		zap.Bool("stop_on_error", s.opts.StopOnError),
	)

	for {
		if err := s.sleep(ctx, s.opts.PollInterval); err != nil {
			return s.stopped(ctx, err)
		}

		_, err := s.cycle(ctx)
		if err != nil {
			return s.stopped(ctx, err)
		}
	}
}

// cycle runs one receive and handles the batch
func (s *Service) cycle(ctx context.Context) (*Report, error) {
	msgs, err := s.queue.Receive(ctx, queue.ReceiveOptions{
		MaxMessages: s.opts.MaxMessages,
		WaitTime:    s.opts.WaitTime,
	})
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}

	report := &Report{Received: len(msgs)}
	s.recorder.MessagesReceived(len(msgs))
	if len(msgs) == 0 {
		s.logger.Info("no messages in queue")
		return report, nil
	}

	for i, msg := range msgs {
		// unhandled messages stay unacknowledged and are redelivered
		if err := ctx.Err(); err != nil {
			s.logger.Info("stopping mid-batch", zap.Int("unhandled", len(msgs)-i))
			return report, err
		}
		err := s.handle(ctx, msg, report)
		if err == nil {
			continue
		}
		if s.opts.StopOnError {
			return report, err
		}
		s.logger.Error("message failed", zap.String("message_id", msg.ID), zap.Error(err))
	}

	s.logger.Info("batch complete",
		zap.Int("received", report.Received),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// handle processes one message and always acknowledges it with its own receipt handle
func (s *Service) handle(ctx context.Context, msg queue.Message, report *Report) error {
	result, procErr := s.processor.Process(ctx, msg)
	switch {
	case procErr != nil:
		report.Failed++
		s.recorder.MessageProcessed(OutcomeFailed)
	case result != nil && result.Skipped:
		report.Skipped++
		s.recorder.MessageProcessed(OutcomeSkipped)
	default:
		report.Succeeded++
		s.recorder.MessageProcessed(OutcomeSuccess)
		if result != nil {
			s.recorder.TranscodeDuration(result.TranscodeDuration)
		}
	}

	ackErr := s.queue.Delete(ctx, msg.ReceiptHandle)
	s.recorder.Acknowledged(ackErr)
	if ackErr != nil {
		report.AckFailed++
		ackErr = fmt.Errorf("delete message %s: %w", msg.ID, ackErr)
	} else {
		s.logger.Debug("message deleted", zap.String("message_id", msg.ID))
	}

	return errors.Join(procErr, ackErr)
}

func (s *Service) stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		s.logger.Info("worker stopped")
		return nil
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
