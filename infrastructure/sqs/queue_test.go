package sqs

import (
	"context"
	"errors"
	"testing"
	"time"

	"transcode-worker/domain/queue"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks & Test Helpers ---

type mockAPI struct {
	GetQueueUrlFunc    func(ctx context.Context, params *sqs.GetQueueUrlInput) (*sqs.GetQueueUrlOutput, error)
	ReceiveMessageFunc func(ctx context.Context, params *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageFunc  func(ctx context.Context, params *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
}

func (m *mockAPI) GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, _ ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	return m.GetQueueUrlFunc(ctx, params)
}

func (m *mockAPI) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return m.ReceiveMessageFunc(ctx, params)
}

func (m *mockAPI) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	return m.DeleteMessageFunc(ctx, params)
}

const testURL = "https://sqs.us-east-1.amazonaws.com/123456789012/uploads"

func newTestQueue(t *testing.T, api *mockAPI) *Queue {
	t.Helper()
	api.GetQueueUrlFunc = func(ctx context.Context, params *sqs.GetQueueUrlInput) (*sqs.GetQueueUrlOutput, error) {
		return &sqs.GetQueueUrlOutput{QueueUrl: aws.String(testURL)}, nil
	}
	q, err := NewQueue(context.Background(), api, "uploads", "", nil)
	require.NoError(t, err)
	return q
}

// --- Tests ---

func TestNewQueue_ResolvesURL(t *testing.T) {
	var gotName string
	api := &mockAPI{
		GetQueueUrlFunc: func(ctx context.Context, params *sqs.GetQueueUrlInput) (*sqs.GetQueueUrlOutput, error) {
			gotName = aws.ToString(params.QueueName)
			return &sqs.GetQueueUrlOutput{QueueUrl: aws.String(testURL)}, nil
		},
	}

	q, err := NewQueue(context.Background(), api, "uploads", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "uploads", gotName)
	assert.Equal(t, testURL, q.URL())
}

func TestNewQueue_ExplicitURLSkipsLookup(t *testing.T) {
	q, err := NewQueue(context.Background(), &mockAPI{}, "uploads", "http://localhost:4566/000000000000/uploads", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4566/000000000000/uploads", q.URL())
}

func TestNewQueue_UnknownQueue(t *testing.T) {
	api := &mockAPI{
		GetQueueUrlFunc: func(ctx context.Context, params *sqs.GetQueueUrlInput) (*sqs.GetQueueUrlOutput, error) {
			return nil, &types.QueueDoesNotExist{}
		},
	}

	_, err := NewQueue(context.Background(), api, "nope", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestQueue_Receive(t *testing.T) {
	var input *sqs.ReceiveMessageInput
	api := &mockAPI{
		ReceiveMessageFunc: func(ctx context.Context, params *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
			input = params
			return &sqs.ReceiveMessageOutput{Messages: []types.Message{
				{
					MessageId:     aws.String("m-1"),
					Body:          aws.String(`{"Records":[]}`),
					ReceiptHandle: aws.String("rh-1"),
					MessageAttributes: map[string]types.MessageAttributeValue{
						"source": {DataType: aws.String("String"), StringValue: aws.String("test")},
					},
				},
				{MessageId: aws.String("m-2"), Body: aws.String("{}"), ReceiptHandle: aws.String("rh-2")},
			}}, nil
		},
	}
	q := newTestQueue(t, api)

	msgs, err := q.Receive(context.Background(), queue.ReceiveOptions{MaxMessages: 10, WaitTime: 20 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, testURL, aws.ToString(input.QueueUrl))
	assert.Equal(t, int32(10), input.MaxNumberOfMessages)
	assert.Equal(t, int32(20), input.WaitTimeSeconds)

	require.Len(t, msgs, 2)
	assert.Equal(t, queue.Message{
		ID:            "m-1",
		Body:          `{"Records":[]}`,
		ReceiptHandle: "rh-1",
		Attributes:    map[string]string{"source": "test"},
	}, msgs[0])
	assert.Equal(t, "rh-2", msgs[1].ReceiptHandle)
	assert.Nil(t, msgs[1].Attributes)
}

func TestQueue_Receive_ClampsOptions(t *testing.T) {
	tests := []struct {
		name     string
		opts     queue.ReceiveOptions
		wantMax  int32
		wantWait int32
	}{
		{"single shot", queue.ReceiveOptions{MaxMessages: 1}, 1, 0},
		{"zero max", queue.ReceiveOptions{}, 1, 0},
		{"above limits", queue.ReceiveOptions{MaxMessages: 50, WaitTime: time.Minute}, 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input *sqs.ReceiveMessageInput
			api := &mockAPI{
				ReceiveMessageFunc: func(ctx context.Context, params *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
					input = params
					return &sqs.ReceiveMessageOutput{}, nil
				},
			}
			q := newTestQueue(t, api)

			msgs, err := q.Receive(context.Background(), tt.opts)
			require.NoError(t, err)
			assert.Empty(t, msgs)
			assert.Equal(t, tt.wantMax, input.MaxNumberOfMessages)
			assert.Equal(t, tt.wantWait, input.WaitTimeSeconds)
		})
	}
}

func TestQueue_Receive_Error(t *testing.T) {
	api := &mockAPI{
		ReceiveMessageFunc: func(ctx context.Context, params *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
			return nil, context.Canceled
		},
	}
	q := newTestQueue(t, api)

	_, err := q.Receive(context.Background(), queue.ReceiveOptions{MaxMessages: 1})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestQueue_Delete(t *testing.T) {
	var input *sqs.DeleteMessageInput
	api := &mockAPI{
		DeleteMessageFunc: func(ctx context.Context, params *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
			input = params
			return &sqs.DeleteMessageOutput{}, nil
		},
	}
	q := newTestQueue(t, api)

	require.NoError(t, q.Delete(context.Background(), "rh-1"))
	assert.Equal(t, testURL, aws.ToString(input.QueueUrl))
	assert.Equal(t, "rh-1", aws.ToString(input.ReceiptHandle))
}

func TestQueue_Delete_Error(t *testing.T) {
	api := &mockAPI{
		DeleteMessageFunc: func(ctx context.Context, params *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
			return nil, &types.ReceiptHandleIsInvalid{}
		},
	}
	q := newTestQueue(t, api)

	err := q.Delete(context.Background(), "bogus")
	var invalid *types.ReceiptHandleIsInvalid
	assert.True(t, errors.As(err, &invalid))
}
