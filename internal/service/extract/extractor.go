package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/geeksondemand/chatbot/internal/config"
	"github.com/geeksondemand/chatbot/internal/model/chat"
	"github.com/geeksondemand/chatbot/internal/model/issue"
)

// ExtractionError marks a failed transcript-to-issue extraction. It is fatal
// to the terminal handoff: the caller must not persist an issue or run
// matching when it is returned.
type ExtractionError struct {
	ConversationID string
	Err            error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for conversation %s: %v", e.ConversationID, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// runner is the slice of compose.Runnable the extractor invokes; tests swap
// in a fake.
type runner interface {
	Invoke(ctx context.Context, input map[string]any, opts ...compose.Option) (*schema.Message, error)
}

// Service turns a completed conversation transcript into a StructuredIssue
// via a structured-completion call.
type Service struct {
	chain runner
}

// NewService compiles the extraction chain against the configured chat model.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{transcript}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile extraction chain: %w", err)
	}

	return &Service{chain: runnable}, nil
}

// payload mirrors the issue fields the model is allowed to fill. Decoding is
// strict so a shape drift in the model output surfaces as an error instead of
// a silently empty issue.
type payload struct {
	DeviceDetails      *issue.DeviceDetails      `json:"device_details"`
	PurchaseInfo       *issue.PurchaseInfo       `json:"purchase_info"`
	ProblemDescription *issue.ProblemDescription `json:"problem_description"`
	CategoryDetails    *issue.CategoryDetails    `json:"category_details"`
	Summary            string                    `json:"summary"`
}

// Extract runs the structured completion over the transcript and returns the
// validated issue with identifiers, status and timestamps stamped.
func (s *Service) Extract(ctx context.Context, transcript []chat.Message, userID, conversationID string) (issue.StructuredIssue, error) {
	text, err := FormatTranscript(transcript)
	if err != nil {
		return issue.StructuredIssue{}, &ExtractionError{ConversationID: conversationID, Err: err}
	}

	msg, err := s.chain.Invoke(ctx, map[string]any{
		"system":     extractionPrompt,
		"transcript": text,
	})
	if err != nil {
		return issue.StructuredIssue{}, &ExtractionError{ConversationID: conversationID, Err: err}
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return issue.StructuredIssue{}, &ExtractionError{ConversationID: conversationID, Err: fmt.Errorf("empty completion")}
	}

	parsed, err := parsePayload(msg.Content)
	if err != nil {
		return issue.StructuredIssue{}, &ExtractionError{ConversationID: conversationID, Err: err}
	}

	now := time.Now().UTC()
	rec := issue.StructuredIssue{
		ID:                 uuid.NewString(),
		UserID:             userID,
		ConversationID:     conversationID,
		Status:             issue.StatusOpen,
		DeviceDetails:      parsed.DeviceDetails,
		PurchaseInfo:       parsed.PurchaseInfo,
		ProblemDescription: parsed.ProblemDescription,
		CategoryDetails:    parsed.CategoryDetails,
		Summary:            parsed.Summary,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	log.Printf("[extract] structured issue ready conversation=%s user=%s", conversationID, userID)
	return rec, nil
}

// FormatTranscript renders messages as one "{SENDER}: {text}" line per turn,
// in transcript order.
func FormatTranscript(transcript []chat.Message) (string, error) {
	if len(transcript) == 0 {
		return "", fmt.Errorf("transcript is empty")
	}

	var builder strings.Builder
	for i, msg := range transcript {
		if msg.Sender != chat.SenderUser && msg.Sender != chat.SenderAgent {
			return "", fmt.Errorf("unknown sender %q at position %d", msg.Sender, i)
		}
		builder.WriteString(msg.Sender)
		builder.WriteString(": ")
		builder.WriteString(msg.Text)
		if i < len(transcript)-1 {
			builder.WriteString("\n")
		}
	}
	return builder.String(), nil
}

// parsePayload decodes the completion's JSON object, rejecting unknown fields
// and requiring a summary.
func parsePayload(content string) (*payload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("completion carries no json object")
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(trimmed[start : end+1])))
	decoder.DisallowUnknownFields()

	parsed := &payload{}
	if err := decoder.Decode(parsed); err != nil {
		return nil, fmt.Errorf("completion does not match issue shape: %w", err)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return nil, fmt.Errorf("completion is missing the issue summary")
	}
	return parsed, nil
}
