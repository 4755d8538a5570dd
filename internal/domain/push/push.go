package push

import (
	"context"
)

// Data types understood by the mobile client router.
const (
	TypeNewQuestCreated          = "new_quest_created"
	TypeTakoyakiReceived         = "takoyaki_received"
	TypeQuestDeadline            = "quest_deadline"
	TypeLoginBonus               = "login_bonus"
	TypeCancellationNotification = "cancellation_notification"
)

// Notification is the visible part of a push message.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Payload is the wire contract handed to the gateway. Data["type"] routes the
// message on the client.
type Payload struct {
	Notification Notification      `json:"notification"`
	Data         map[string]string `json:"data"`
}

// Type returns the routing discriminator.
func (p Payload) Type() string {
	return p.Data["type"]
}

// SendResult is the outcome for one token.
type SendResult struct {
	Success bool
	Error   error
}

// BatchResponse is aligned positionally with the tokens of the request.
type BatchResponse struct {
	SuccessCount int
	FailureCount int
	Results      []SendResult
}

// Gateway delivers a payload to device tokens. An error means the call could
// not be made at all; per-token failures are reported in the response.
type Gateway interface {
	SendToDevices(ctx context.Context, tokens []string, payload Payload) (*BatchResponse, error)
}
