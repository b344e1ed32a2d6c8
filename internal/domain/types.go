package domain

import "time"

type ChatID string
type UserID string
type MessageID string

// Sender is the author of a message in a chat.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Role is the author of a history entry as the backend model sees it.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// NoticeKind classifies a transient notification.
type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
	NoticeInfo    NoticeKind = "info"
)

type Timestamp = time.Time
