package domain

import "time"

type NoticeLevel string

// Only failures raise notices today.
const NoticeError NoticeLevel = "error"

// Notice is a user-facing message raised by a cart operation.
type Notice struct {
	ID        string      `json:"id"`
	Level     NoticeLevel `json:"level"`
	Message   string      `json:"message"`
	ProductID int64       `json:"product_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
