package telegram

// ReplyMarkup is any keyboard attachment accepted by sendMessage.
type ReplyMarkup interface {
	replyMarkup()
}

// KeyboardButton is one button of a reply keyboard.
type KeyboardButton struct {
	Text string `json:"text"`
}

// ReplyKeyboardMarkup renders a custom reply keyboard under the input box.
type ReplyKeyboardMarkup struct {
	Keyboard        [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard  bool               `json:"resize_keyboard,omitempty"`
	OneTimeKeyboard bool               `json:"one_time_keyboard,omitempty"`
}

func (ReplyKeyboardMarkup) replyMarkup() {}

// ReplyKeyboardRemove tells the client to drop the custom keyboard.
type ReplyKeyboardRemove struct {
	RemoveKeyboard bool `json:"remove_keyboard"`
}

func (ReplyKeyboardRemove) replyMarkup() {}

// InlineKeyboardButton is one button of an inline keyboard; pressing it
// produces a callback query carrying CallbackData.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

// InlineKeyboardMarkup attaches an inline keyboard to a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

func (InlineKeyboardMarkup) replyMarkup() {}

// Update is the webhook payload shape, reduced to the fields the bot reads.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// Message is an inbound or sent chat message.
type Message struct {
	MessageID int64       `json:"message_id"`
	From      *User       `json:"from"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text"`
	Photo     []PhotoSize `json:"photo"`
	Document  *Document   `json:"document"`
	Sticker   *anyMedia   `json:"sticker"`
	Video     *anyMedia   `json:"video"`
	Animation *anyMedia   `json:"animation"`
	Voice     *anyMedia   `json:"voice"`
	Audio     *anyMedia   `json:"audio"`
	VideoNote *anyMedia   `json:"video_note"`
}

// HasNonPhotoMedia reports whether the message carries an attachment that is
// neither text nor a photo.
func (m *Message) HasNonPhotoMedia() bool {
	if m == nil {
		return false
	}
	if m.Document != nil && !m.Document.IsImage() {
		return true
	}
	return m.Sticker != nil || m.Video != nil || m.Animation != nil ||
		m.Voice != nil || m.Audio != nil || m.VideoNote != nil
}

// BestPhoto returns the file id of the largest photo size, "" when the
// message has no usable photo.
func (m *Message) BestPhoto() string {
	if m == nil {
		return ""
	}
	if len(m.Photo) > 0 {
		return m.Photo[len(m.Photo)-1].FileID
	}
	if m.Document != nil && m.Document.IsImage() {
		return m.Document.FileID
	}
	return ""
}

// User identifies a Telegram account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Chat identifies a conversation.
type Chat struct {
	ID int64 `json:"id"`
}

// PhotoSize is one resolution of an inbound photo.
type PhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Document is a generic file attachment.
type Document struct {
	FileID   string `json:"file_id"`
	MimeType string `json:"mime_type"`
}

// IsImage reports whether the document is an image sent as a file.
func (d *Document) IsImage() bool {
	if d == nil {
		return false
	}
	return len(d.MimeType) >= 6 && d.MimeType[:6] == "image/"
}

type anyMedia struct {
	FileID string `json:"file_id"`
}

// CallbackQuery is an inline keyboard button press.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

// File is the getFile response payload.
type File struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}
