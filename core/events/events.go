// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package events publishes change notifications for stored resources

A Notification is sent after every successful write. Publishers exist for the
log, Kafka and AWS SQS; Multi fans a notification out to several of them.
Publishing is best effort: a failed publish never undoes the write.
*/
package events

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/vitrine/core"
	"github.com/relabs-tech/vitrine/core/logger"
)

// Notification tells that a resource was created, updated or deleted
type Notification struct {
	Resource   string          `json:"resource"`
	Operation  core.Operation  `json:"operation"`
	ResourceID string          `json:"resource_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	RequestID  string          `json:"request_id,omitempty"`
}

// NewNotification returns a notification stamped with the current time and
// the request ID found in ctx
func NewNotification(ctx context.Context, resource string, operation core.Operation, id string, payload interface{}) Notification {
	n := Notification{
		Resource:   resource,
		Operation:  operation,
		ResourceID: id,
		CreatedAt:  time.Now().UTC(),
		RequestID:  logger.RequestIDFromContext(ctx),
	}
	if payload != nil {
		n.Payload, _ = json.Marshal(payload)
	}
	return n
}

// Publisher sends notifications somewhere
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
	Close() error
}

// Log is a Publisher which only logs notifications
type Log struct{}

// Publish implements Publisher
func (Log) Publish(ctx context.Context, n Notification) error {
	logger.FromContext(ctx).WithField("resource_id", n.ResourceID).Infof("%s %s", n.Resource, n.Operation)
	return nil
}

// Close implements Publisher
func (Log) Close() error { return nil }

// Multi publishes to all its publishers. It tries all of them and joins the errors.
type Multi []Publisher

// Publish implements Publisher
func (m Multi) Publish(ctx context.Context, n Notification) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Publisher
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
