package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/geeksondemand/chatbot/internal/model/chat"
	"github.com/geeksondemand/chatbot/internal/model/directory"
	"github.com/geeksondemand/chatbot/internal/model/issue"
	"github.com/geeksondemand/chatbot/internal/service/agent"
	"github.com/geeksondemand/chatbot/internal/service/session"
	"github.com/geeksondemand/chatbot/internal/store"
)

type fakeAgent struct {
	replies   []agent.Reply
	histories [][]chat.Message
	calls     int
}

func (f *fakeAgent) Respond(_ context.Context, _ string, history []chat.Message, _ string) (agent.Reply, error) {
	f.histories = append(f.histories, history)
	if f.calls >= len(f.replies) {
		return agent.Reply{}, errors.New("no scripted reply left")
	}
	reply := f.replies[f.calls]
	f.calls++
	return reply, nil
}

type fakeExtractor struct {
	rec   issue.StructuredIssue
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, transcript []chat.Message, userID, conversationID string) (issue.StructuredIssue, error) {
	f.calls++
	if f.err != nil {
		return issue.StructuredIssue{}, f.err
	}
	rec := f.rec
	rec.UserID = userID
	rec.ConversationID = conversationID
	return rec, nil
}

type fakeMatcher struct {
	matches []directory.GeekMatch
	err     error
}

func (f *fakeMatcher) Match(context.Context, issue.StructuredIssue, int, int) ([]directory.GeekMatch, error) {
	return f.matches, f.err
}

type testDeps struct {
	transcripts *store.MemoryTranscriptStore
	issues      *store.MemoryIssueStore
	agent       *fakeAgent
	extractor   Extractor
	matcher     *fakeMatcher
	sessions    *session.Tracker
}

type frame struct {
	Response string          `json:"response"`
	Options  json.RawMessage `json:"options"`
}

func newTestServer(t *testing.T, deps testDeps, idleTimeout time.Duration) *httptest.Server {
	t.Helper()
	if deps.transcripts == nil {
		deps.transcripts = store.NewMemoryTranscriptStore()
	}
	if deps.issues == nil {
		deps.issues = store.NewMemoryIssueStore()
	}
	if deps.sessions == nil {
		deps.sessions = session.NewTracker(session.NewMemoryStore())
	}
	if deps.matcher == nil {
		deps.matcher = &fakeMatcher{}
	}

	var dialogue DialogueAgent
	if deps.agent != nil {
		dialogue = deps.agent
	}

	h := New(deps.transcripts, deps.issues, dialogue, deps.extractor, deps.matcher, deps.sessions, idleTimeout)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, conversationID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat?conversation_id=" + conversationID + "&user_id=u1"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("unexpected handshake status %d", resp.StatusCode)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func sendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		t.Fatalf("write %q: %v", text, err)
	}
}

func TestChatTerminalHandoff(t *testing.T) {
	confirmation := "Summary: Samsung fridge not cooling. I have gathered all the necessary information. Is this summary correct?"
	extractor := &fakeExtractor{rec: issue.StructuredIssue{Summary: "fridge not cooling"}}
	deps := testDeps{
		agent: &fakeAgent{replies: []agent.Reply{
			{Response: "What brand is your device?", Options: []string{"Samsung", "LG"}},
			{Response: confirmation, Options: []string{"Yes", "No"}},
		}},
		extractor: extractor,
		matcher: &fakeMatcher{matches: []directory.GeekMatch{
			{Geek: directory.Geek{FullName: "Asha"}, PrimarySkillName: "Appliance Repair"},
		}},
		transcripts: store.NewMemoryTranscriptStore(),
		issues:      store.NewMemoryIssueStore(),
	}
	srv := newTestServer(t, deps, time.Minute)
	conn := dial(t, srv, "c1")

	sendText(t, conn, "My fridge stopped cooling")
	first := readFrame(t, conn)
	if first.Response != "What brand is your device?" {
		t.Fatalf("unexpected first turn: %+v", first)
	}
	var options []string
	if err := json.Unmarshal(first.Options, &options); err != nil || len(options) != 2 {
		t.Fatalf("unexpected options payload: %s", first.Options)
	}

	sendText(t, conn, "Samsung")
	second := readFrame(t, conn)
	if second.Response != confirmation {
		t.Fatalf("unexpected confirmation turn: %+v", second)
	}

	// the confirmation phrase alone must arm the terminal transition
	sendText(t, conn, "Yes")
	processing := readFrame(t, conn)
	if processing.Response != msgProcessing {
		t.Fatalf("expected processing notice, got %+v", processing)
	}
	final := readFrame(t, conn)
	if final.Response != msgSelectGeek {
		t.Fatalf("expected geek options, got %+v", final)
	}
	var matches []directory.GeekMatch
	if err := json.Unmarshal(final.Options, &matches); err != nil || len(matches) != 1 {
		t.Fatalf("unexpected match payload: %s", final.Options)
	}
	if matches[0].FullName != "Asha" {
		t.Fatalf("unexpected match: %+v", matches[0])
	}

	// channel closes after the handoff
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the channel to close after handoff")
	}

	if extractor.calls != 1 {
		t.Fatalf("expected one extraction, got %d", extractor.calls)
	}
	issues := deps.issues.Issues()
	if len(issues) != 1 || issues[0].ConversationID != "c1" {
		t.Fatalf("issue not persisted: %v", issues)
	}

	history, err := deps.transcripts.History(context.Background(), "c1")
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	// 3 user turns + 2 agent turns
	if len(history) != 5 {
		t.Fatalf("expected 5 transcript messages, got %d", len(history))
	}
}

func TestChatRejectionKeepsConversationOpen(t *testing.T) {
	confirmation := session.ConfirmationPhrase
	extractor := &fakeExtractor{rec: issue.StructuredIssue{Summary: "x"}}
	deps := testDeps{
		agent: &fakeAgent{replies: []agent.Reply{
			{Response: confirmation, ConfirmationPrompt: true},
			{Response: "What should I correct?"},
		}},
		extractor: extractor,
		issues:    store.NewMemoryIssueStore(),
	}
	srv := newTestServer(t, deps, time.Minute)
	conn := dial(t, srv, "c2")

	sendText(t, conn, "broken screen, Apple, bought last year")
	readFrame(t, conn)

	sendText(t, conn, "No, wait - the brand is wrong")
	followup := readFrame(t, conn)
	if followup.Response != "What should I correct?" {
		t.Fatalf("rejection must produce a normal agent turn, got %+v", followup)
	}

	if extractor.calls != 0 {
		t.Fatalf("rejection must not trigger extraction, got %d calls", extractor.calls)
	}
	if len(deps.issues.Issues()) != 0 {
		t.Fatal("rejection must not persist an issue")
	}
}

func TestChatExtractionFailurePersistsNothing(t *testing.T) {
	deps := testDeps{
		agent: &fakeAgent{replies: []agent.Reply{
			{Response: session.ConfirmationPhrase, ConfirmationPrompt: true},
		}},
		extractor: &fakeExtractor{err: errors.New("malformed completion")},
		issues:    store.NewMemoryIssueStore(),
	}
	srv := newTestServer(t, deps, time.Minute)
	conn := dial(t, srv, "c3")

	sendText(t, conn, "details")
	readFrame(t, conn)

	sendText(t, conn, "yes")
	if got := readFrame(t, conn); got.Response != msgProcessing {
		t.Fatalf("expected processing notice, got %+v", got)
	}
	if got := readFrame(t, conn); got.Response != msgExtractionFailed {
		t.Fatalf("expected extraction failure notice, got %+v", got)
	}

	if len(deps.issues.Issues()) != 0 {
		t.Fatal("failed extraction must not persist an issue")
	}
}

// blockingExtractor stays in flight until the connection context is
// cancelled, so tests can disconnect the client mid-extraction.
type blockingExtractor struct {
	started  chan struct{}
	returned chan struct{}
}

func newBlockingExtractor() *blockingExtractor {
	return &blockingExtractor{started: make(chan struct{}), returned: make(chan struct{})}
}

func (f *blockingExtractor) Extract(ctx context.Context, _ []chat.Message, userID, conversationID string) (issue.StructuredIssue, error) {
	close(f.started)
	defer close(f.returned)
	select {
	case <-ctx.Done():
		return issue.StructuredIssue{}, ctx.Err()
	case <-time.After(5 * time.Second):
		return issue.StructuredIssue{Summary: "x", UserID: userID, ConversationID: conversationID}, nil
	}
}

func TestChatDisconnectMidExtractionPersistsNothing(t *testing.T) {
	extractor := newBlockingExtractor()
	deps := testDeps{
		agent: &fakeAgent{replies: []agent.Reply{
			{Response: session.ConfirmationPhrase, ConfirmationPrompt: true},
		}},
		extractor: extractor,
		issues:    store.NewMemoryIssueStore(),
	}
	srv := newTestServer(t, deps, time.Minute)
	conn := dial(t, srv, "c10")

	sendText(t, conn, "details")
	readFrame(t, conn)

	sendText(t, conn, "yes")
	if got := readFrame(t, conn); got.Response != msgProcessing {
		t.Fatalf("expected processing notice, got %+v", got)
	}

	select {
	case <-extractor.started:
	case <-time.After(3 * time.Second):
		t.Fatal("extraction never started")
	}
	conn.Close()

	// the disconnect must cancel the in-flight extraction promptly
	select {
	case <-extractor.returned:
	case <-time.After(3 * time.Second):
		t.Fatal("disconnect did not cancel the in-flight extraction")
	}

	time.Sleep(50 * time.Millisecond)
	if got := len(deps.issues.Issues()); got != 0 {
		t.Fatalf("no issue may be persisted after a mid-extraction disconnect, got %d", got)
	}
}

func TestChatNoMatchesNotice(t *testing.T) {
	deps := testDeps{
		agent: &fakeAgent{replies: []agent.Reply{
			{Response: session.ConfirmationPhrase, ConfirmationPrompt: true},
		}},
		extractor: &fakeExtractor{rec: issue.StructuredIssue{Summary: "x"}},
		matcher:   &fakeMatcher{},
		issues:    store.NewMemoryIssueStore(),
	}
	srv := newTestServer(t, deps, time.Minute)
	conn := dial(t, srv, "c4")

	sendText(t, conn, "details")
	readFrame(t, conn)

	sendText(t, conn, "YES")
	readFrame(t, conn) // processing
	if got := readFrame(t, conn); got.Response != msgNoGeeks {
		t.Fatalf("expected no-geeks notice, got %+v", got)
	}

	// the issue is durable even when matching comes up empty
	if len(deps.issues.Issues()) != 1 {
		t.Fatalf("issue must persist before matching, got %d", len(deps.issues.Issues()))
	}
}

func TestChatMatcherFailureRecoveredAsNoGeeks(t *testing.T) {
	deps := testDeps{
		agent: &fakeAgent{replies: []agent.Reply{
			{Response: session.ConfirmationPhrase, ConfirmationPrompt: true},
		}},
		extractor: &fakeExtractor{rec: issue.StructuredIssue{Summary: "x"}},
		matcher:   &fakeMatcher{err: errors.New("directory offline")},
	}
	srv := newTestServer(t, deps, time.Minute)
	conn := dial(t, srv, "c5")

	sendText(t, conn, "details")
	readFrame(t, conn)

	sendText(t, conn, "yes")
	readFrame(t, conn) // processing
	if got := readFrame(t, conn); got.Response != msgNoGeeks {
		t.Fatalf("expected no-geeks notice, got %+v", got)
	}
}

func TestChatIdleTimeout(t *testing.T) {
	deps := testDeps{agent: &fakeAgent{}}
	srv := newTestServer(t, deps, 150*time.Millisecond)
	conn := dial(t, srv, "c6")

	got := readFrame(t, conn)
	if got.Response != msgSessionTimeout {
		t.Fatalf("expected timeout notice, got %+v", got)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the channel to close after timeout")
	}
}

func TestChatActivityResetsIdleTimer(t *testing.T) {
	deps := testDeps{
		agent: &fakeAgent{replies: []agent.Reply{
			{Response: "a"}, {Response: "b"},
		}},
	}
	srv := newTestServer(t, deps, 400*time.Millisecond)
	conn := dial(t, srv, "c7")

	sendText(t, conn, "one")
	readFrame(t, conn)
	time.Sleep(250 * time.Millisecond)
	sendText(t, conn, "two")
	if got := readFrame(t, conn); got.Response != "b" {
		t.Fatalf("conversation timed out despite activity: %+v", got)
	}
}

func TestChatContinueConversationReplaysHistory(t *testing.T) {
	deps := testDeps{
		agent: &fakeAgent{replies: []agent.Reply{{Response: "next question"}}},
	}
	srv := newTestServer(t, deps, time.Minute)
	conn := dial(t, srv, "c8")

	replay := `{"action": "continue_conversation", "chat_history": [` +
		`{"role": "user", "content": "fridge broken"},` +
		`{"role": "assistant", "content": "what brand?"}]}`
	sendText(t, conn, replay)

	sendText(t, conn, "Samsung")
	if got := readFrame(t, conn); got.Response != "next question" {
		t.Fatalf("unexpected turn: %+v", got)
	}

	if len(deps.agent.histories) != 1 {
		t.Fatalf("expected one agent call, got %d", len(deps.agent.histories))
	}
	if got := len(deps.agent.histories[0]); got != 2 {
		t.Fatalf("replayed history not handed to agent, got %d turns", got)
	}
}

func TestChatAgentUnavailable(t *testing.T) {
	srv := newTestServer(t, testDeps{}, time.Minute)
	conn := dial(t, srv, "c9")

	sendText(t, conn, "hello")
	if got := readFrame(t, conn); got.Response != msgAgentUnavailable {
		t.Fatalf("expected unavailability notice, got %+v", got)
	}
}
