package pubsub

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"transcode-worker/domain/queue"
	"transcode-worker/infrastructure/googleauth"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	gpubsub "google.golang.org/api/pubsub/v1"
)

// SubscriptionService defines the Pub/Sub subscription calls used by Queue.
// This allows mocking the REST API in tests.
type SubscriptionService interface {
	Pull(ctx context.Context, subscription string, maxMessages int64, returnImmediately bool) ([]*gpubsub.ReceivedMessage, error)
	Acknowledge(ctx context.Context, subscription string, ackIDs []string) error
}

// GoogleSubscriptionService is the production implementation using the Pub/Sub REST API
type GoogleSubscriptionService struct {
	service *gpubsub.Service
}

// Pull fetches messages from a subscription
func (s *GoogleSubscriptionService) Pull(ctx context.Context, subscription string, maxMessages int64, returnImmediately bool) ([]*gpubsub.ReceivedMessage, error) {
	resp, err := s.service.Projects.Subscriptions.Pull(subscription, &gpubsub.PullRequest{
		MaxMessages:       maxMessages,
		ReturnImmediately: returnImmediately,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.ReceivedMessages, nil
}

// Acknowledge acks messages on a subscription
func (s *GoogleSubscriptionService) Acknowledge(ctx context.Context, subscription string, ackIDs []string) error {
	_, err := s.service.Projects.Subscriptions.Acknowledge(subscription, &gpubsub.AcknowledgeRequest{
		AckIds: ackIDs,
	}).Context(ctx).Do()
	return err
}

// Config holds Pub/Sub settings
type Config struct {
	Project         string
	Subscription    string
	CredentialsFile string
	TokenFile       string
}

// Queue implements queue.Queue on a Pub/Sub pull subscription
type Queue struct {
	subscriptions SubscriptionService
	path          string
	logger        *zap.Logger
}

// QueueOption is a functional option for configuring Queue
type QueueOption func(*Queue)

// WithSubscriptionService sets a custom subscription service (for testing)
func WithSubscriptionService(svc SubscriptionService) QueueOption {
	return func(q *Queue) {
		q.subscriptions = svc
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) QueueOption {
	return func(q *Queue) {
		q.logger = logger
	}
}

// SubscriptionPath resolves a subscription id to its full resource name
func SubscriptionPath(project, subscription string) (string, error) {
	if strings.HasPrefix(subscription, "projects/") {
		return subscription, nil
	}
	if project == "" {
		return "", fmt.Errorf("project is required for subscription %q", subscription)
	}
	if subscription == "" {
		return "", fmt.Errorf("subscription is required")
	}
	return "projects/" + project + "/subscriptions/" + subscription, nil
}

// NewQueue creates a Pub/Sub queue.
// If no subscription service is provided, one is built from cfg's credentials.
func NewQueue(ctx context.Context, cfg Config, opts ...QueueOption) (*Queue, error) {
	path, err := SubscriptionPath(cfg.Project, cfg.Subscription)
	if err != nil {
		return nil, err
	}

	q := &Queue{path: path, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(q)
	}

	if q.subscriptions == nil {
		client, err := googleauth.HTTPClient(ctx, googleauth.Config{
			CredentialsFile: cfg.CredentialsFile,
			TokenFile:       cfg.TokenFile,
			Scopes:          []string{googleauth.ScopePubSub},
		})
		if err != nil {
			return nil, err
		}
		srv, err := gpubsub.NewService(ctx, option.WithHTTPClient(client))
		if err != nil {
			return nil, fmt.Errorf("unable to create pubsub service: %w", err)
		}
		q.subscriptions = &GoogleSubscriptionService{service: srv}
	}

	q.logger.Info("using subscription", zap.String("subscription", path))
	return q, nil
}

// Path returns the full subscription resource name
func (q *Queue) Path() string {
	return q.path
}

// Receive pulls up to opts.MaxMessages messages. A pull that outlives
// opts.WaitTime returns no messages rather than an error.
func (q *Queue) Receive(ctx context.Context, opts queue.ReceiveOptions) ([]queue.Message, error) {
	maxMessages := int64(opts.MaxMessages)
	if maxMessages <= 0 {
		maxMessages = 1
	}

	pullCtx := ctx
	returnImmediately := opts.WaitTime <= 0
	if !returnImmediately {
		var cancel context.CancelFunc
		pullCtx, cancel = context.WithTimeout(ctx, opts.WaitTime)
		defer cancel()
	}

	received, err := q.subscriptions.Pull(pullCtx, q.path, maxMessages, returnImmediately)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("pull %s: %w", q.path, err)
	}

	msgs := make([]queue.Message, 0, len(received))
	for _, rm := range received {
		msg, err := toMessage(rm)
		if err != nil {
			// Acknowledge so an undecodable payload is not redelivered forever
			q.logger.Warn("dropping undecodable message", zap.String("ack_id", rm.AckId), zap.Error(err))
			if ackErr := q.Delete(ctx, rm.AckId); ackErr != nil {
				return nil, ackErr
			}
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Delete acknowledges one message by ack id
func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	if err := q.subscriptions.Acknowledge(ctx, q.path, []string{receiptHandle}); err != nil {
		return fmt.Errorf("acknowledge: %w", err)
	}
	return nil
}

func toMessage(rm *gpubsub.ReceivedMessage) (queue.Message, error) {
	msg := queue.Message{ReceiptHandle: rm.AckId}
	if rm.Message == nil {
		return msg, nil
	}
	msg.ID = rm.Message.MessageId
	msg.Attributes = rm.Message.Attributes

	data, err := base64.StdEncoding.DecodeString(rm.Message.Data)
	if err != nil {
		return msg, fmt.Errorf("decode data of message %s: %w", rm.Message.MessageId, err)
	}
	msg.Body = string(data)
	return msg, nil
}

var _ queue.Queue = (*Queue)(nil)
