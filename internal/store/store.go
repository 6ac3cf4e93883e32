package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/geeksondemand/chatbot/internal/model/chat"
	"github.com/geeksondemand/chatbot/internal/model/directory"
	"github.com/geeksondemand/chatbot/internal/model/issue"
)

// ErrNotFound is returned by lookups that resolve no document.
var ErrNotFound = errors.New("not found")

// TranscriptError wraps failures of the transcript store so callers can tell
// them apart from extraction or directory failures.
type TranscriptError struct {
	Op             string
	ConversationID string
	Err            error
}

func (e *TranscriptError) Error() string {
	return fmt.Sprintf("transcript store %s failed for conversation %s: %v", e.Op, e.ConversationID, e.Err)
}

func (e *TranscriptError) Unwrap() error { return e.Err }

// TranscriptStore is the append-only conversation log.
type TranscriptStore interface {
	// Append stores one message and returns it with ID and CreatedAt stamped.
	Append(ctx context.Context, msg chat.Message) (chat.Message, error)
	// History returns all messages of a conversation sorted by CreatedAt
	// ascending. A conversation with no messages yields an empty slice.
	History(ctx context.Context, conversationID string) ([]chat.Message, error)
	// ConversationsByUser groups a user's messages per conversation, messages
	// in insertion order, conversations newest-first.
	ConversationsByUser(ctx context.Context, userID string) ([]chat.Conversation, error)
}

// IssueStore persists extracted structured issues.
type IssueStore interface {
	Insert(ctx context.Context, rec issue.StructuredIssue) error
}

// GeekQuery describes the provider filter handed to the directory. SkillIDs
// is the atomic skill OR-clause; Brand and Near are reserved predicates that
// AND into it when set.
type GeekQuery struct {
	SkillIDs []primitive.ObjectID
	Brand    string
	Near     *GeoPoint
}

// GeoPoint is a WGS84 coordinate used by the reserved proximity predicate.
type GeoPoint struct {
	Longitude float64
	Latitude  float64
	MaxMeters float64
}

// DirectoryStore reads the provider directory and its skill taxonomy.
type DirectoryStore interface {
	// CategoryByTitle resolves a category by exact title. ErrNotFound when
	// no category carries that title.
	CategoryByTitle(ctx context.Context, title string) (*directory.Category, error)
	// SubCategoryByTitle resolves a subcategory by exact title.
	SubCategoryByTitle(ctx context.Context, title string) (*directory.SubCategory, error)
	// SkillTitles maps skill identifiers to their titles. Categories are
	// scanned before subcategories; the first title found for an identifier
	// wins. Unknown identifiers are absent from the result.
	SkillTitles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
	// FindGeeks returns the page-th page (1-based) of geeks matching the
	// query, in the directory's native order.
	FindGeeks(ctx context.Context, q GeekQuery, page, pageSize int) ([]directory.Geek, error)
	AllGeeks(ctx context.Context) ([]directory.Geek, error)
	GeekByID(ctx context.Context, id string) (*directory.Geek, error)
	AllCategories(ctx context.Context) ([]directory.Category, error)
	// SubCategoryTitlesBySlug lists subcategory titles under a category slug.
	// Missing category yields an empty slice, not an error.
	SubCategoryTitlesBySlug(ctx context.Context, slug string) ([]string, error)
	// BrandNamesBySlug lists brand names associated with a category slug.
	BrandNamesBySlug(ctx context.Context, slug string) ([]string, error)
}
