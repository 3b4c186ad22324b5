package models

// Event is one inbound user interaction, already lifted out of the
// transport's update format. Exactly one of Text, Button, or PhotoFileID is
// meaningful; HasMedia flags non-photo attachments so text steps can reject
// them.
type Event struct {
	ChatID   int64
	UserID   int64
	Username string

	Text        string
	Button      string
	PhotoFileID string
	HasMedia    bool

	MessageID int64
}

// IsPhoto reports whether the event carries a photo attachment.
func (e Event) IsPhoto() bool { return e.PhotoFileID != "" }
