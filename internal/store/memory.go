package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/geeksondemand/chatbot/internal/model/chat"
	"github.com/geeksondemand/chatbot/internal/model/directory"
	"github.com/geeksondemand/chatbot/internal/model/issue"
)

// MemoryTranscriptStore keeps transcripts in process memory. Suitable for
// tests and for running without a MongoDB instance.
type MemoryTranscriptStore struct {
	mu       sync.RWMutex
	messages map[string][]chat.Message
}

func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{messages: make(map[string][]chat.Message)}
}

func (s *MemoryTranscriptStore) Append(_ context.Context, msg chat.Message) (chat.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	s.mu.Unlock()
	return msg, nil
}

func (s *MemoryTranscriptStore) History(_ context.Context, conversationID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.messages[conversationID]
	copied := make([]chat.Message, len(stored))
	copy(copied, stored)
	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].CreatedAt.Before(copied[j].CreatedAt)
	})
	return copied, nil
}

func (s *MemoryTranscriptStore) ConversationsByUser(_ context.Context, userID string) ([]chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversations := make([]chat.Conversation, 0, 4)
	for id, stored := range s.messages {
		var msgs []chat.Message
		for _, msg := range stored {
			if msg.UserID == userID {
				msgs = append(msgs, msg)
			}
		}
		if len(msgs) == 0 {
			continue
		}
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		})
		conversations = append(conversations, chat.Conversation{
			ConversationID: id,
			Messages:       msgs,
			StartTime:      msgs[0].CreatedAt,
		})
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].StartTime.After(conversations[j].StartTime)
	})
	return conversations, nil
}

// MemoryIssueStore collects inserted issues in memory.
type MemoryIssueStore struct {
	mu     sync.RWMutex
	issues []issue.StructuredIssue
}

func NewMemoryIssueStore() *MemoryIssueStore {
	return &MemoryIssueStore{}
}

func (s *MemoryIssueStore) Insert(_ context.Context, rec issue.StructuredIssue) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.issues = append(s.issues, rec)
	s.mu.Unlock()
	return nil
}

// Issues returns a copy of everything inserted so far.
func (s *MemoryIssueStore) Issues() []issue.StructuredIssue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]issue.StructuredIssue, len(s.issues))
	copy(copied, s.issues)
	return copied
}

// MemoryDirectory implements DirectoryStore over preloaded slices, keeping
// the geeks' slice order as the native directory order. The reserved brand
// and proximity predicates are ignored here, matching their inert status.
type MemoryDirectory struct {
	mu            sync.RWMutex
	categories    []directory.Category
	subCategories []directory.SubCategory
	brands        []directory.Brand
	geeks         []directory.Geek
}

func NewMemoryDirectory(categories []directory.Category, subCategories []directory.SubCategory, brands []directory.Brand, geeks []directory.Geek) *MemoryDirectory {
	return &MemoryDirectory{
		categories:    append([]directory.Category(nil), categories...),
		subCategories: append([]directory.SubCategory(nil), subCategories...),
		brands:        append([]directory.Brand(nil), brands...),
		geeks:         append([]directory.Geek(nil), geeks...),
	}
}

func (s *MemoryDirectory) CategoryByTitle(_ context.Context, title string) (*directory.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cat := range s.categories {
		if cat.Title == title {
			found := cat
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryDirectory) SubCategoryByTitle(_ context.Context, title string) (*directory.SubCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subCategories {
		if sub.Title == title {
			found := sub
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryDirectory) SkillTitles(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	titles := make(map[primitive.ObjectID]string, len(ids))
	for _, cat := range s.categories {
		if wanted[cat.ID] {
			if _, ok := titles[cat.ID]; !ok {
				titles[cat.ID] = cat.Title
			}
		}
	}
	for _, sub := range s.subCategories {
		if wanted[sub.ID] {
			if _, ok := titles[sub.ID]; !ok {
				titles[sub.ID] = sub.Title
			}
		}
	}
	return titles, nil
}

func (s *MemoryDirectory) FindGeeks(_ context.Context, q GeekQuery, page, pageSize int) ([]directory.Geek, error) {
	page, pageSize = normalizePage(page, pageSize)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]directory.Geek, 0, len(s.geeks))
	for _, geek := range s.geeks {
		if matchesSkills(geek, q.SkillIDs) {
			matched = append(matched, geek)
		}
	}

	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []directory.Geek{}, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return append([]directory.Geek(nil), matched[start:end]...), nil
}

func matchesSkills(geek directory.Geek, skillIDs []primitive.ObjectID) bool {
	if len(skillIDs) == 0 {
		return true
	}
	for _, id := range skillIDs {
		if geek.PrimarySkillID == id {
			return true
		}
		for _, sec := range geek.SecondarySkillIDs {
			if sec == id {
				return true
			}
		}
	}
	return false
}

func (s *MemoryDirectory) AllGeeks(_ context.Context) ([]directory.Geek, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]directory.Geek(nil), s.geeks...), nil
}

func (s *MemoryDirectory) GeekByID(_ context.Context, id string) (*directory.Geek, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, geek := range s.geeks {
		if geek.ID.Hex() == id {
			found := geek
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryDirectory) AllCategories(_ context.Context) ([]directory.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]directory.Category(nil), s.categories...), nil
}

func (s *MemoryDirectory) SubCategoryTitlesBySlug(_ context.Context, slug string) ([]string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cat := range s.categories {
		if cat.Slug != slug {
			continue
		}
		titles := make([]string, 0, len(cat.SubCategoryIDs))
		for _, id := range cat.SubCategoryIDs {
			for _, sub := range s.subCategories {
				if sub.ID == id {
					titles = append(titles, sub.Title)
					break
				}
			}
		}
		return titles, nil
	}
	return []string{}, nil
}

func (s *MemoryDirectory) BrandNamesBySlug(_ context.Context, slug string) ([]string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cat := range s.categories {
		if cat.Slug != slug {
			continue
		}
		names := make([]string, 0, 4)
		for _, brand := range s.brands {
			if brand.CategoryID == cat.ID {
				names = append(names, brand.Name)
			}
		}
		return names, nil
	}
	return []string{}, nil
}
