package model

import "time"

type ChatGroup struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	IsPrivate   bool      `json:"is_private"`
	JoinCode    string    `json:"join_code"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	MemberCount int       `json:"member_count"`
}

type ChatMessage struct {
	ID             int64     `json:"id"`
	GroupID        int64     `json:"group_id"`
	SenderID       int64     `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	Timestamp      time.Time `json:"timestamp"`
}
