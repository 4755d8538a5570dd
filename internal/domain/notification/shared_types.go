// internal/domain/notification/shared_types.go
package notification

// Type is the discriminator of an inbox record.
type Type string

const (
	TypeTakoyakiReceived Type = "takoyaki_received"
)
