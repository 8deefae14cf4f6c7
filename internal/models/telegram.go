package models

// TelegramUpdate represents an incoming Telegram update from getUpdates.
type TelegramUpdate struct {
	UpdateID      int64                  `json:"update_id"`
	Message       *TelegramMessage       `json:"message,omitempty"`
	CallbackQuery *TelegramCallbackQuery `json:"callback_query,omitempty"`
}

// TelegramCallbackQuery is the button-press callback for inline keyboards.
// The engine treats Data as if the user had typed it.
type TelegramCallbackQuery struct {
	ID      string           `json:"id"`
	From    *TelegramUser    `json:"from"`
	Message *TelegramMessage `json:"message,omitempty"`
	Data    string           `json:"data,omitempty"`
}

// TelegramMessage represents a Telegram message.
type TelegramMessage struct {
	MessageID int64         `json:"message_id"`
	From      *TelegramUser `json:"from,omitempty"`
	Chat      *TelegramChat `json:"chat"`
	Date      int64         `json:"date"`
	Text      string        `json:"text,omitempty"`

	// Media attachments
	Photo    []TelegramPhotoSize `json:"photo,omitempty"` // Telegram sends multiple sizes
	Voice    *TelegramVoice      `json:"voice,omitempty"`
	Document *TelegramDocument   `json:"document,omitempty"`
	Caption  string              `json:"caption,omitempty"`
}

// TelegramPhotoSize represents one size of an incoming photo.
type TelegramPhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int    `json:"file_size,omitempty"`
}

// TelegramVoice represents a voice message.
type TelegramVoice struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Duration     int    `json:"duration"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int    `json:"file_size,omitempty"`
}

// TelegramDocument represents a document/file attachment.
type TelegramDocument struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int    `json:"file_size,omitempty"`
}

// TelegramUser represents a Telegram user.
type TelegramUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// TelegramChat represents a Telegram chat.
type TelegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// ChoiceButton is one selectable option attached to an outbound reply,
// used for Ambiguous match resolution and focus-session selection.
type ChoiceButton struct {
	Label string `json:"text"`
	Data  string `json:"callback_data"`
}

// InlineKeyboardMarkup is the Telegram reply_markup wire shape.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]ChoiceButton `json:"inline_keyboard"`
}
