package session

import "strings"

// ConfirmationPhrase is the marker the agent prompt embeds in its final
// summary question. Detection is a substring match so surrounding summary
// text does not break it. Kept as a fallback for agent replies that do not
// carry the structured confirmation flag.
const ConfirmationPhrase = "I have gathered all the necessary information. Is this summary correct?"

// Tracker drives the conversation state machine: OPEN while information is
// being gathered, awaiting confirmation after the agent asks the summary
// question, terminal once the user affirms.
type Tracker struct {
	store Store
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// ObserveAgentTurn records the agent's latest reply. The awaiting-confirmation
// state is recomputed on every agent turn, so a turn without the marker moves
// the conversation back to open.
func (t *Tracker) ObserveAgentTurn(conversationID, responseText string, confirmationPrompt bool) {
	t.store.Set(conversationID, Entry{
		LastAgentQuestion:  responseText,
		ConfirmationPrompt: confirmationPrompt || strings.Contains(responseText, ConfirmationPhrase),
	})
}

// Confirmed reports whether the inbound user message closes the conversation:
// the last agent turn asked for confirmation and the user answered "yes"
// (trimmed, case-insensitive). Any other answer leaves the dialogue open.
func (t *Tracker) Confirmed(conversationID, userText string) bool {
	entry, ok := t.store.Get(conversationID)
	if !ok || !entry.ConfirmationPrompt {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(userText), "yes")
}

// Forget drops the conversation's state, on terminal handoff or disconnect.
func (t *Tracker) Forget(conversationID string) {
	t.store.Delete(conversationID)
}
