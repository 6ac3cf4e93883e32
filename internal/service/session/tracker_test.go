package session

import "testing"

func TestTrackerConfirmationFlow(t *testing.T) {
	tr := NewTracker(NewMemoryStore())

	tr.ObserveAgentTurn("c1", "What brand is your device?", false)
	if tr.Confirmed("c1", "yes") {
		t.Fatal("confirmed before the summary question was asked")
	}

	tr.ObserveAgentTurn("c1", "Summary: fridge not cooling. I have gathered all the necessary information. Is this summary correct?", false)
	if !tr.Confirmed("c1", "  YES ") {
		t.Fatal("expected trimmed case-insensitive yes to confirm")
	}
	if tr.Confirmed("c1", "No, wait") {
		t.Fatal("a non-yes answer must not confirm")
	}
}

func TestTrackerStructuredFlag(t *testing.T) {
	tr := NewTracker(NewMemoryStore())

	// the flag confirms even when the reply wording drifts off the phrase
	tr.ObserveAgentTurn("c1", "Here is everything I noted. Shall we proceed?", true)
	if !tr.Confirmed("c1", "yes") {
		t.Fatal("expected structured flag to arm confirmation")
	}
}

func TestTrackerRecomputedEveryAgentTurn(t *testing.T) {
	tr := NewTracker(NewMemoryStore())

	tr.ObserveAgentTurn("c1", ConfirmationPhrase, false)
	tr.ObserveAgentTurn("c1", "What triggers the problem?", false)
	if tr.Confirmed("c1", "yes") {
		t.Fatal("a later turn without the marker must disarm confirmation")
	}
}

func TestTrackerForget(t *testing.T) {
	tr := NewTracker(NewMemoryStore())

	tr.ObserveAgentTurn("c1", ConfirmationPhrase, false)
	tr.Forget("c1")
	if tr.Confirmed("c1", "yes") {
		t.Fatal("forgotten conversation must start over")
	}
}

func TestTrackerConversationsIsolated(t *testing.T) {
	tr := NewTracker(NewMemoryStore())

	tr.ObserveAgentTurn("c1", ConfirmationPhrase, false)
	tr.ObserveAgentTurn("c2", "What brand is your device?", false)

	if !tr.Confirmed("c1", "yes") {
		t.Fatal("c1 should be awaiting confirmation")
	}
	if tr.Confirmed("c2", "yes") {
		t.Fatal("c2 must not be affected by c1's state")
	}
}
