package user

// User is a profile document from the users collection.
type User struct {
	ID          string
	Character   string // display name shown to other users
	FCMToken    string // push destination; empty when the device never registered
	CalendarURL string // iCalendar feed, empty when the user has not linked one
}

// HasToken reports whether the user can receive push notifications.
func (u *User) HasToken() bool {
	return u != nil && u.FCMToken != ""
}
