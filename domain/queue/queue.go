package queue

import (
	"context"
	"time"
)

// Message is one delivery borrowed from the queue until it is deleted
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
	Attributes    map[string]string
}

// ReceiveOptions controls a single receive call
type ReceiveOptions struct {
	// MaxMessages caps how many messages are returned
	MaxMessages int

	// WaitTime is the long-poll duration; zero returns immediately
	WaitTime time.Duration
}

// Queue defines the interface for message queue operations
// This is a port that can be implemented by different infrastructure adapters
type Queue interface {
	// Receive returns up to opts.MaxMessages messages; an empty slice means none were available
	Receive(ctx context.Context, opts ReceiveOptions) ([]Message, error)

	// Delete acknowledges a message by its receipt handle
	Delete(ctx context.Context, receiptHandle string) error
}
