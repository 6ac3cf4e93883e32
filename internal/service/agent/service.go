package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/geeksondemand/chatbot/internal/config"
	"github.com/geeksondemand/chatbot/internal/model/chat"
)

// Reply is one agent turn: the question or statement shown to the user, an
// optional list of answer choices, and the structured confirmation flag set
// when the turn is the final summary-confirmation question.
type Reply struct {
	Response           string   `json:"response"`
	Options            []string `json:"options,omitempty"`
	ConfirmationPrompt bool     `json:"isConfirmationPrompt,omitempty"`
}

// runner is the slice of compose.Runnable the service invokes; tests swap in
// a fake.
type runner interface {
	Invoke(ctx context.Context, input map[string]any, opts ...compose.Option) (*schema.Message, error)
}

// Service generates information-gathering dialogue turns.
type Service struct {
	chain runner
}

// NewService compiles the dialogue chain against the configured chat model.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile dialogue chain: %w", err)
	}

	return &Service{chain: runnable}, nil
}

// Respond generates the next agent turn for a conversation.
func (s *Service) Respond(ctx context.Context, conversationID string, history []chat.Message, userText string) (Reply, error) {
	input := map[string]any{
		"system":  systemPrompt,
		"history": buildHistoryMessages(history),
		"query":   userText,
	}

	msg, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to run dialogue chain: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return Reply{}, fmt.Errorf("dialogue chain returned empty response")
	}

	reply := parseReply(msg.Content)
	log.Printf("[agent] generated turn for conversation=%s options=%d confirm=%t", conversationID, len(reply.Options), reply.ConfirmationPrompt)
	return reply, nil
}

// parseReply decodes the model's JSON turn. Output that is not a JSON object
// degrades to a plain-text reply with no options.
func parseReply(content string) Reply {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end > start {
		var reply Reply
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &reply); err == nil && reply.Response != "" {
			return reply
		}
	}
	return Reply{Response: trimmed}
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	const historyLimit = 40

	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Sender {
		case chat.SenderUser:
			history = append(history, schema.UserMessage(msg.Text))
		case chat.SenderAgent:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return history
}
