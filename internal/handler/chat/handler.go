package chat

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/geeksondemand/chatbot/internal/store"
	"github.com/geeksondemand/chatbot/pkg/utils"
)

// Handler exposes read access to stored transcripts.
type Handler struct {
	transcripts store.TranscriptStore
}

func New(transcripts store.TranscriptStore) *Handler {
	return &Handler{transcripts: transcripts}
}

// RegisterRoutes mounts the chat-history endpoints. Full paths are used so
// they can share the /chat prefix with the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/chat_history/{conversationID}", h.handleChatHistory)
	r.Get("/chat/conversation/{userID}", h.handleConversations)
}

// turn is the role/content projection of a stored message.
type turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *Handler) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	messages, err := h.transcripts.History(r.Context(), conversationID)
	if err != nil {
		log.Printf("[chat] history fetch failed conversation=%s: %v", conversationID, err)
		utils.RespondError(w, http.StatusInternalServerError, "Error fetching chat history")
		return
	}

	if len(messages) == 0 {
		utils.RespondJSON(w, http.StatusOK, nil)
		return
	}

	turns := make([]turn, 0, len(messages))
	for _, msg := range messages {
		turns = append(turns, turn{Role: msg.Sender, Content: msg.Text})
	}
	utils.RespondJSON(w, http.StatusOK, turns)
}

func (h *Handler) handleConversations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	conversations, err := h.transcripts.ConversationsByUser(r.Context(), userID)
	if err != nil {
		log.Printf("[chat] conversation fetch failed user=%s: %v", userID, err)
		utils.RespondError(w, http.StatusInternalServerError, "Error fetching conversation")
		return
	}

	if len(conversations) == 0 {
		utils.RespondJSON(w, http.StatusOK, nil)
		return
	}
	utils.RespondJSON(w, http.StatusOK, conversations)
}
