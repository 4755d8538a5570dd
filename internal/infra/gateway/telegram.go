package gateway

import (
	"context"
	"fmt"
	"strconv"

	"quest_notifier/internal/domain/push"

	"gopkg.in/telebot.v3"
)

type messageSender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramGateway delivers payloads as Telegram messages. A token is the
// numeric chat id of the user's private chat with the bot.
type TelegramGateway struct {
	bot messageSender
}

func NewTelegramGateway(b *telebot.Bot) *TelegramGateway {
	return &TelegramGateway{bot: b}
}

// SendToDevices sends one message per token. Telegram has no multicast, so a
// failing chat only fails its own slot.
func (g *TelegramGateway) SendToDevices(ctx context.Context, tokens []string, payload push.Payload) (*push.BatchResponse, error) {
	text := payload.Notification.Title
	if payload.Notification.Body != "" {
		text += "\n" + payload.Notification.Body
	}

	resp := &push.BatchResponse{Results: make([]push.SendResult, len(tokens))}
	for i, token := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chatID, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			resp.Results[i] = push.SendResult{Error: fmt.Errorf("invalid chat id %q: %w", token, err)}
			resp.FailureCount++
			continue
		}

		recipient := &telebot.User{ID: chatID} // private chats share the user's id
		if _, err := g.bot.Send(recipient, text, &telebot.SendOptions{ParseMode: telebot.ModeDefault}); err != nil {
			resp.Results[i] = push.SendResult{Error: err}
			resp.FailureCount++
			continue
		}
		resp.Results[i] = push.SendResult{Success: true}
		resp.SuccessCount++
	}
	return resp, nil
}
