// Package gateway holds the push gateway adapters.
package gateway

import (
	"context"
	"fmt"

	"quest_notifier/internal/domain/push"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMGateway sends through Firebase Cloud Messaging.
type FCMGateway struct {
	client multicastSender
}

// NewFCMGateway initializes a Firebase app from a service account file.
func NewFCMGateway(ctx context.Context, credentialsFile string) (*FCMGateway, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	return &FCMGateway{client: client}, nil
}

// SendToDevices sends one multicast request. Callers keep tokens within the
// FCM limit of 500.
func (g *FCMGateway) SendToDevices(ctx context.Context, tokens []string, payload push.Payload) (*push.BatchResponse, error) {
	resp, err := g.client.SendEachForMulticast(ctx, toMulticastMessage(tokens, payload))
	if err != nil {
		return nil, fmt.Errorf("fcm multicast: %w", err)
	}

	out := &push.BatchResponse{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
		Results:      make([]push.SendResult, len(resp.Responses)),
	}
	for i, r := range resp.Responses {
		if r == nil {
			continue
		}
		out.Results[i] = push.SendResult{Success: r.Success, Error: r.Error}
	}
	return out, nil
}

func toMulticastMessage(tokens []string, payload push.Payload) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: payload.Notification.Title,
			Body:  payload.Notification.Body,
		},
		Data: payload.Data,
	}
}
