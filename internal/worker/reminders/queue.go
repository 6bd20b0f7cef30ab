// Package reminders scans for appointments that need a confirmation
// reminder, queues the work through SQS and emails the patients.
package reminders

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Message is one unit of queued reminder work.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Queue moves reminder jobs between the scanner and the consumer.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages, waitSeconds int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// SQSAPI is the subset of the SQS client used by SQSQueue.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue implements Queue backed by AWS/LocalStack SQS.
type SQSQueue struct {
	client   SQSAPI
	queueURL string
}

// NewSQSQueue creates a queue wrapper around the provided SQS client.
func NewSQSQueue(client SQSAPI, queueURL string) *SQSQueue {
	if client == nil {
		panic("reminders: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("reminders: SQS queueURL cannot be empty")
	}
	return &SQSQueue{client: client, queueURL: queueURL}
}

func (q *SQSQueue) Send(ctx context.Context, body string) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("reminders: failed to send SQS message: %w", err)
	}
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, maxMessages, waitSeconds int) ([]Message, error) {
	output, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(maxMessages),
		WaitTimeSeconds:     int32(waitSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("reminders: failed to receive SQS messages: %w", err)
	}

	messages := make([]Message, 0, len(output.Messages))
	for _, msg := range output.Messages {
		messages = append(messages, Message{
			ID:            aws.ToString(msg.MessageId),
			Body:          aws.ToString(msg.Body),
			ReceiptHandle: aws.ToString(msg.ReceiptHandle),
		})
	}
	return messages, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	if receiptHandle == "" {
		return nil
	}
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("reminders: failed to delete SQS message: %w", err)
	}
	return nil
}

// MemoryQueue is an in-process Queue for local development and tests.
type MemoryQueue struct {
	ch chan Message
}

// NewMemoryQueue creates a buffered in-memory queue.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 128
	}
	return &MemoryQueue{ch: make(chan Message, size)}
}

func (q *MemoryQueue) Send(_ context.Context, body string) error {
	select {
	case q.ch <- Message{Body: body}:
		return nil
	default:
		return fmt.Errorf("reminders: memory queue full")
	}
}

func (q *MemoryQueue) Receive(ctx context.Context, maxMessages, _ int) ([]Message, error) {
	var out []Message
	for len(out) < maxMessages {
		select {
		case msg := <-q.ch:
			out = append(out, msg)
		case <-ctx.Done():
			return out, nil
		default:
			return out, nil
		}
	}
	return out, nil
}

func (q *MemoryQueue) Delete(context.Context, string) error { return nil }
