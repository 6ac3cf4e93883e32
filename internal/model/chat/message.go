package chat

import "time"

// Sender roles for transcript messages.
const (
	SenderUser  = "USER"
	SenderAgent = "AGENT"
)

// Message is one turn of a conversation transcript. Insertion order,
// reconstructed by CreatedAt ascending, is the only meaningful order.
type Message struct {
	ID             string    `bson:"_id,omitempty" json:"id,omitempty"`
	ConversationID string    `bson:"conversation_id" json:"conversationId"`
	UserID         string    `bson:"user_id,omitempty" json:"userId,omitempty"`
	Sender         string    `bson:"sender" json:"sender"`
	Text           string    `bson:"message" json:"message"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}

// Conversation groups a user's stored messages under one conversation
// identifier, newest conversation first.
type Conversation struct {
	ConversationID string    `bson:"_id" json:"conversationId"`
	Messages       []Message `bson:"messages" json:"messages"`
	StartTime      time.Time `bson:"startTime" json:"startTime"`
}
