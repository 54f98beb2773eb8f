// Package connectors defines the notification sink interface for issuewatch.
package connectors

import (
	"context"
	"errors"

	"github.com/fentz26/issuewatch/internal/models"
)

// ErrDeliveryFailed wraps every failed send. Delivery is best effort and
// is never retried by the caller.
var ErrDeliveryFailed = errors.New("delivery failed")

// Sink delivers notifications to a destination channel.
type Sink interface {
	// Name returns the sink identifier.
	Name() string

	// Send delivers one message.
	Send(ctx context.Context, msg models.Notification) error
}
