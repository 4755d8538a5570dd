// internal/app/dispatcher.go
package app

import (
	"context"
	"errors"
	"fmt"

	"quest_notifier/internal/domain/push"

	"github.com/sirupsen/logrus"
)

// MaxTokensPerCall matches the FCM multicast limit.
const MaxTokensPerCall = 500

var ErrNoTokens = errors.New("no push tokens to send to")

// DispatchResult aggregates gateway responses for one payload.
type DispatchResult struct {
	SuccessCount int
	FailureCount int
	// FailedTokens lists rejected tokens in request order. They are only
	// logged; no retry or token cleanup happens here.
	FailedTokens []string
}

// PushDispatcher sends payloads through the push gateway.
type PushDispatcher struct {
	gateway   push.Gateway
	batchSize int
	logger    *logrus.Entry
}

func NewPushDispatcher(gateway push.Gateway, logger *logrus.Entry) *PushDispatcher {
	return &PushDispatcher{gateway: gateway, batchSize: MaxTokensPerCall, logger: logger}
}

// Send delivers payload to tokens, splitting the list into gateway-sized
// calls. It returns an error only when a gateway call cannot be made; the
// result then holds whatever earlier calls reported.
func (d *PushDispatcher) Send(ctx context.Context, tokens []string, payload push.Payload) (*DispatchResult, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}

	result := &DispatchResult{}
	logCtx := d.logger.WithField("type", payload.Type())

	for start := 0; start < len(tokens); start += d.batchSize {
		end := min(start+d.batchSize, len(tokens))
		batch := tokens[start:end]

		resp, err := d.gateway.SendToDevices(ctx, batch, payload)
		if err != nil {
			return result, fmt.Errorf("send to %d devices: %w", len(batch), err)
		}

		result.SuccessCount += resp.SuccessCount
		result.FailureCount += resp.FailureCount
		for i, r := range resp.Results {
			if r.Success || i >= len(batch) {
				continue
			}
			result.FailedTokens = append(result.FailedTokens, batch[i])
			entry := logCtx.WithField("token", batch[i])
			if r.Error != nil {
				entry = entry.WithError(r.Error)
			}
			entry.Error("Failed to send notification to token")
		}
	}

	logCtx.WithFields(logrus.Fields{
		"tokens":        len(tokens),
		"success_count": result.SuccessCount,
		"failure_count": result.FailureCount,
	}).Info("Push notification sent")
	return result, nil
}
