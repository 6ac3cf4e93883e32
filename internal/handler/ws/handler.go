package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/geeksondemand/chatbot/internal/model/chat"
	"github.com/geeksondemand/chatbot/internal/model/directory"
	"github.com/geeksondemand/chatbot/internal/model/issue"
	"github.com/geeksondemand/chatbot/internal/service/agent"
	"github.com/geeksondemand/chatbot/internal/service/session"
	"github.com/geeksondemand/chatbot/internal/store"
)

const (
	defaultMatchPageSize = 10

	msgProcessing         = "Give us a moment while we process your request."
	msgSelectGeek         = "Please select a geek from the options below."
	msgNoGeeks            = "no suitable geeks found"
	msgSessionTimeout     = "Session timed out due to inactivity."
	msgAgentUnavailable   = "The support agent is unavailable right now. Please try again later."
	msgAgentFailed        = "I ran into a problem generating a reply. Please send your message again."
	msgTranscriptFailed   = "Something went wrong while storing your conversation. Please try again later."
	msgExtractionFailed   = "Something went wrong while recording your issue. Please try again later."
	msgIssuePersistFailed = "Something went wrong while saving your issue. Please try again later."
)

// DialogueAgent generates the next conversational turn.
type DialogueAgent interface {
	Respond(ctx context.Context, conversationID string, history []chat.Message, userText string) (agent.Reply, error)
}

// Extractor turns a completed transcript into a structured issue.
type Extractor interface {
	Extract(ctx context.Context, transcript []chat.Message, userID, conversationID string) (issue.StructuredIssue, error)
}

// Matcher finds candidate geeks for a structured issue.
type Matcher interface {
	Match(ctx context.Context, rec issue.StructuredIssue, page, pageSize int) ([]directory.GeekMatch, error)
}

// Handler serves the bidirectional /chat channel: one conversation per
// connection, strictly request/response per turn.
type Handler struct {
	transcripts store.TranscriptStore
	issues      store.IssueStore
	agent       DialogueAgent
	extractor   Extractor
	matcher     Matcher
	sessions    *session.Tracker
	idleTimeout time.Duration
	upgrader    websocket.Upgrader
}

// New wires the chat channel handler. agent and extractor may be nil when the
// model credentials are not configured; the handler then degrades to
// unavailability notices.
func New(transcripts store.TranscriptStore, issues store.IssueStore, dialogue DialogueAgent, extractor Extractor, matcher Matcher, sessions *session.Tracker, idleTimeout time.Duration) *Handler {
	return &Handler{
		transcripts: transcripts,
		issues:      issues,
		agent:       dialogue,
		extractor:   extractor,
		matcher:     matcher,
		sessions:    sessions,
		idleTimeout: idleTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat", h.handleChat)
}

// conversation is the per-connection state. The mutex serializes frame writes
// between the turn loop and the ping loop.
type conversation struct {
	conversationID string
	userID         string
	conn           *websocket.Conn
	mu             sync.Mutex
	// history mirrors the agent's working memory for this connection. It is
	// seeded empty (or by a continue_conversation replay) and grows with each
	// turn; the terminal extraction reads the durable transcript instead.
	history []chat.Message
}

func (c *conversation) send(payload outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(payload)
}

func (c *conversation) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] chat opened conversation=%s user=%s", conversationID, userID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer h.sessions.Forget(conversationID)

	sess := &conversation{
		conversationID: conversationID,
		userID:         userID,
		conn:           conn,
	}

	readGrace := h.idleTimeout + 30*time.Second
	conn.SetReadDeadline(time.Now().Add(readGrace))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readGrace))
		return nil
	})

	go h.pingLoop(ctx, sess)

	// The read pump owns the read deadline. Cancelling the context on read
	// error stops any turn still in flight, including a terminal handoff.
	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				cancel()
				readErr <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(readGrace))
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	idle := time.NewTimer(h.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error conversation=%s: %v", conversationID, err)
			} else {
				log.Printf("[websocket] chat disconnected conversation=%s", conversationID)
			}
			return
		case <-idle.C:
			log.Printf("[websocket] session timed out conversation=%s", conversationID)
			_ = sess.send(outbound{Response: msgSessionTimeout})
			return
		case data := <-frames:
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(h.idleTimeout)

			if done := h.handleFrame(ctx, sess, data); done {
				return
			}
		}
	}
}

// handleFrame processes one inbound frame and reports whether the channel
// should close.
func (h *Handler) handleFrame(ctx context.Context, sess *conversation, data []byte) bool {
	frame, isAction := decodeInbound(data)
	if isAction {
		switch frame.Action {
		case actionContinueConversation:
			sess.history = historyFromItems(frame.ChatHistory, sess.conversationID, sess.userID)
			log.Printf("[websocket] replayed %d history turns conversation=%s", len(sess.history), sess.conversationID)
			return false
		default:
			_ = sess.send(outbound{Response: "unsupported action: " + frame.Action})
			return false
		}
	}

	text := frame.Message
	if text == "" {
		return false
	}
	return h.handleUserTurn(ctx, sess, text)
}

// handleUserTurn appends the user message, checks the terminal condition, and
// either hands off to extraction+matching or generates the next agent turn.
func (h *Handler) handleUserTurn(ctx context.Context, sess *conversation, text string) bool {
	priorHistory := sess.history

	userMsg := chat.Message{
		ConversationID: sess.conversationID,
		UserID:         sess.userID,
		Sender:         chat.SenderUser,
		Text:           text,
	}
	stored, err := h.transcripts.Append(ctx, userMsg)
	if err != nil {
		log.Printf("[websocket] transcript append failed conversation=%s user=%s: %v", sess.conversationID, sess.userID, err)
		_ = sess.send(outbound{Response: msgTranscriptFailed})
		return true
	}
	sess.history = append(sess.history, stored)

	if h.sessions.Confirmed(sess.conversationID, text) {
		return h.finalize(ctx, sess)
	}

	if h.agent == nil {
		_ = sess.send(outbound{Response: msgAgentUnavailable})
		return false
	}

	reply, err := h.agent.Respond(ctx, sess.conversationID, priorHistory, text)
	if err != nil {
		log.Printf("[websocket] agent turn failed conversation=%s: %v", sess.conversationID, err)
		_ = sess.send(outbound{Response: msgAgentFailed})
		return false
	}

	h.sessions.ObserveAgentTurn(sess.conversationID, reply.Response, reply.ConfirmationPrompt)

	agentMsg := chat.Message{
		ConversationID: sess.conversationID,
		UserID:         sess.userID,
		Sender:         chat.SenderAgent,
		Text:           reply.Response,
	}
	storedAgent, err := h.transcripts.Append(ctx, agentMsg)
	if err != nil {
		log.Printf("[websocket] transcript append failed conversation=%s user=%s: %v", sess.conversationID, sess.userID, err)
		_ = sess.send(outbound{Response: msgTranscriptFailed})
		return true
	}
	sess.history = append(sess.history, storedAgent)

	_ = sess.send(outbound{Response: reply.Response, Options: optionsPayload(reply.Options)})
	return false
}

// finalize drives the terminal handoff: extraction, persistence, matching.
// The channel always closes afterwards. Matching failures are recovered into
// a "no geeks" notice; extraction failures abort before anything is persisted.
// A disconnect while extraction is in flight cancels the context, and nothing
// is persisted once the client is gone.
func (h *Handler) finalize(ctx context.Context, sess *conversation) bool {
	if err := sess.send(outbound{Response: msgProcessing}); err != nil {
		log.Printf("[websocket] handoff aborted, client gone conversation=%s: %v", sess.conversationID, err)
		return true
	}

	transcript, err := h.transcripts.History(ctx, sess.conversationID)
	if err != nil {
		log.Printf("[websocket] transcript read failed conversation=%s user=%s: %v", sess.conversationID, sess.userID, err)
		_ = sess.send(outbound{Response: msgTranscriptFailed})
		return true
	}

	if h.extractor == nil {
		_ = sess.send(outbound{Response: msgAgentUnavailable})
		return true
	}

	rec, err := h.extractor.Extract(ctx, transcript, sess.userID, sess.conversationID)
	if ctx.Err() != nil {
		log.Printf("[websocket] handoff aborted, client gone conversation=%s", sess.conversationID)
		return true
	}
	if err != nil {
		log.Printf("[websocket] extraction failed conversation=%s user=%s: %v", sess.conversationID, sess.userID, err)
		_ = sess.send(outbound{Response: msgExtractionFailed})
		return true
	}

	if err := h.issues.Insert(ctx, rec); err != nil {
		log.Printf("[websocket] issue persist failed conversation=%s user=%s: %v", sess.conversationID, sess.userID, err)
		_ = sess.send(outbound{Response: msgIssuePersistFailed})
		return true
	}

	matches, err := h.matcher.Match(ctx, rec, 1, defaultMatchPageSize)
	if err != nil {
		log.Printf("[websocket] matching failed conversation=%s user=%s: %v", sess.conversationID, sess.userID, err)
		_ = sess.send(outbound{Response: msgNoGeeks})
		return true
	}
	if len(matches) == 0 {
		_ = sess.send(outbound{Response: msgNoGeeks})
		return true
	}

	_ = sess.send(outbound{Response: msgSelectGeek, Options: matches})
	return true
}

func (h *Handler) pingLoop(ctx context.Context, sess *conversation) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sess.ping(); err != nil {
				return
			}
		}
	}
}

// optionsPayload keeps nil option lists serialized as JSON null.
func optionsPayload(options []string) any {
	if len(options) == 0 {
		return nil
	}
	return options
}
