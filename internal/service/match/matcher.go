package match

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/geeksondemand/chatbot/internal/model/directory"
	"github.com/geeksondemand/chatbot/internal/model/issue"
	"github.com/geeksondemand/chatbot/internal/store"
)

// DirectoryAccessError marks a provider-directory query failure. The caller
// recovers locally by reporting that no geeks were found; the session is not
// aborted.
type DirectoryAccessError struct {
	Op  string
	Err error
}

func (e *DirectoryAccessError) Error() string {
	return fmt.Sprintf("directory access failed during %s: %v", e.Op, e.Err)
}

func (e *DirectoryAccessError) Unwrap() error { return e.Err }

// Service matches structured issues against the provider directory.
type Service struct {
	dir store.DirectoryStore
}

func NewService(dir store.DirectoryStore) *Service {
	return &Service{dir: dir}
}

// Match returns the page-th page (1-based) of geeks whose skills cover the
// issue's category details, with skill references resolved to names. When
// neither category nor subcategory resolves, no skill filter is applied and
// the whole directory is the candidate set. An empty result is not an error.
func (s *Service) Match(ctx context.Context, rec issue.StructuredIssue, page, pageSize int) ([]directory.GeekMatch, error) {
	skillIDs, err := s.resolveSkills(ctx, rec.CategoryDetails)
	if err != nil {
		return nil, err
	}

	geeks, err := s.dir.FindGeeks(ctx, store.GeekQuery{SkillIDs: skillIDs}, page, pageSize)
	if err != nil {
		return nil, &DirectoryAccessError{Op: "geek query", Err: err}
	}

	matches, err := s.denormalize(ctx, geeks)
	if err != nil {
		return nil, err
	}

	log.Printf("[match] conversation=%s skills=%d candidates=%d page=%d", rec.ConversationID, len(skillIDs), len(matches), page)
	return matches, nil
}

// resolveSkills maps the issue's category details to skill identifiers by
// exact title match. Unresolved names are dropped silently; a subcategory
// equal to the category is not looked up twice.
func (s *Service) resolveSkills(ctx context.Context, details *issue.CategoryDetails) ([]primitive.ObjectID, error) {
	if details == nil {
		return nil, nil
	}

	var skillIDs []primitive.ObjectID

	if details.Category != "" {
		cat, err := s.dir.CategoryByTitle(ctx, details.Category)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, &DirectoryAccessError{Op: "category resolution", Err: err}
		default:
			skillIDs = append(skillIDs, cat.ID)
		}
	}

	if details.SubCategory != "" && details.SubCategory != details.Category {
		sub, err := s.dir.SubCategoryByTitle(ctx, details.SubCategory)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, &DirectoryAccessError{Op: "subcategory resolution", Err: err}
		default:
			skillIDs = append(skillIDs, sub.ID)
		}
	}

	return skillIDs, nil
}

// denormalize attaches human-readable skill names to each candidate. The
// primary name is the first title resolved for the identifier; secondary
// names preserve the profile's reference order.
func (s *Service) denormalize(ctx context.Context, geeks []directory.Geek) ([]directory.GeekMatch, error) {
	ids := make([]primitive.ObjectID, 0, len(geeks)*2)
	for _, geek := range geeks {
		if !geek.PrimarySkillID.IsZero() {
			ids = append(ids, geek.PrimarySkillID)
		}
		ids = append(ids, geek.SecondarySkillIDs...)
	}

	titles, err := s.dir.SkillTitles(ctx, ids)
	if err != nil {
		return nil, &DirectoryAccessError{Op: "skill name resolution", Err: err}
	}

	matches := make([]directory.GeekMatch, 0, len(geeks))
	for _, geek := range geeks {
		match := directory.GeekMatch{Geek: geek}
		if title, ok := titles[geek.PrimarySkillID]; ok {
			match.PrimarySkillName = title
		}
		for _, id := range geek.SecondarySkillIDs {
			if title, ok := titles[id]; ok {
				match.SecondarySkillNames = append(match.SecondarySkillNames, title)
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}
