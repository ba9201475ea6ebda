package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"screening-backend/internal/queue"
)

// Processor runs the classification for a screening identified by its token.
type Processor interface {
	Process(ctx context.Context, sessionToken string) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingToken indicates a message missing the session token.
type ErrMissingToken struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingToken) Error() string { return "missing session token" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	SessionToken string
	RequestID    string
	Err          error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process screening"
	}
	return "process screening: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.SessionToken) == "" {
		return queue.Message{}, meta, ErrMissingToken{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// Handle parses the payload and runs the screening through the processor.
func Handle(ctx context.Context, proc Processor, body string) error {
	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	if err := proc.Process(ctx, msg.SessionToken); err != nil {
		return ErrProcess{SessionToken: msg.SessionToken, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
