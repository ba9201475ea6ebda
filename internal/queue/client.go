package queue

import "context"

// Client dispatches screening jobs to a queue backend. The SQS implementation
// lives in sqs_client.go; tests stub this interface directly.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
