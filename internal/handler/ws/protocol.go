package ws

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/geeksondemand/chatbot/internal/model/chat"
)

const actionContinueConversation = "continue_conversation"

// inboundFrame is one decoded user frame. Either Action is set (structured
// frame) or Message carries plain user text.
type inboundFrame struct {
	Action      string        `json:"action"`
	ChatHistory []historyItem `json:"chat_history"`
	Message     string        `json:"-"`
}

// historyItem matches the chat-history REST shape replayed by clients.
type historyItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// outbound is one agent frame. Options is null for statement turns and holds
// either answer choices or geek matches on the final turn.
type outbound struct {
	Response string `json:"response"`
	Options  any    `json:"options"`
}

// decodeInbound interprets a frame as a structured action when it parses as a
// JSON object carrying an action discriminator; everything else, including
// unparseable payloads, is plain user text.
func decodeInbound(data []byte) (inboundFrame, bool) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err == nil && frame.Action != "" {
		return frame, true
	}
	return inboundFrame{Message: strings.TrimSpace(string(data))}, false
}

// historyFromItems rebuilds agent working memory from a replayed history.
// Unknown roles are skipped.
func historyFromItems(items []historyItem, conversationID, userID string) []chat.Message {
	history := make([]chat.Message, 0, len(items))
	now := time.Now().UTC()
	for i, item := range items {
		var sender string
		switch strings.ToUpper(strings.TrimSpace(item.Role)) {
		case chat.SenderUser, "HUMAN":
			sender = chat.SenderUser
		case chat.SenderAgent, "ASSISTANT", "AI":
			sender = chat.SenderAgent
		default:
			continue
		}
		history = append(history, chat.Message{
			ConversationID: conversationID,
			UserID:         userID,
			Sender:         sender,
			Text:           item.Content,
			CreatedAt:      now.Add(time.Duration(i) * time.Millisecond),
		})
	}
	return history
}
