package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/geeksondemand/chatbot/internal/model/chat"
	"github.com/geeksondemand/chatbot/internal/model/directory"
	"github.com/geeksondemand/chatbot/internal/model/issue"
)

const (
	collChatMessages  = "chat_messages_with_bot"
	collUserIssues    = "user_issues"
	collGeeks         = "geeks"
	collCategories    = "categories"
	collSubCategories = "subcategories"
	collBrands        = "brands"
)

// Mongo implements TranscriptStore, IssueStore and DirectoryStore against a
// single MongoDB database.
type Mongo struct {
	db *mongo.Database
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Mongo{db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.db.Client().Disconnect(ctx)
}

func (m *Mongo) Append(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	if _, err := m.db.Collection(collChatMessages).InsertOne(ctx, msg); err != nil {
		return chat.Message{}, &TranscriptError{Op: "append", ConversationID: msg.ConversationID, Err: err}
	}
	return msg, nil
}

func (m *Mongo) History(ctx context.Context, conversationID string) ([]chat.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := m.db.Collection(collChatMessages).Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, &TranscriptError{Op: "history", ConversationID: conversationID, Err: err}
	}
	defer cursor.Close(ctx)

	messages := make([]chat.Message, 0, 16)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, &TranscriptError{Op: "history", ConversationID: conversationID, Err: err}
	}
	return messages, nil
}

func (m *Mongo) ConversationsByUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$sort", Value: bson.M{"created_at": 1}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$conversation_id",
			"messages":  bson.M{"$push": "$$ROOT"},
			"startTime": bson.M{"$min": "$created_at"},
		}}},
		{{Key: "$sort", Value: bson.M{"startTime": -1}}},
	}

	cursor, err := m.db.Collection(collChatMessages).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &TranscriptError{Op: "conversations", ConversationID: "", Err: err}
	}
	defer cursor.Close(ctx)

	conversations := make([]chat.Conversation, 0, 8)
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, &TranscriptError{Op: "conversations", ConversationID: "", Err: err}
	}
	return conversations, nil
}

func (m *Mongo) Insert(ctx context.Context, rec issue.StructuredIssue) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, err := m.db.Collection(collUserIssues).InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert issue for conversation %s: %w", rec.ConversationID, err)
	}
	return nil
}

func (m *Mongo) CategoryByTitle(ctx context.Context, title string) (*directory.Category, error) {
	var cat directory.Category
	err := m.db.Collection(collCategories).FindOne(ctx, bson.M{"title": title}).Decode(&cat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("category lookup by title %q failed: %w", title, err)
	}
	return &cat, nil
}

func (m *Mongo) SubCategoryByTitle(ctx context.Context, title string) (*directory.SubCategory, error) {
	var sub directory.SubCategory
	err := m.db.Collection(collSubCategories).FindOne(ctx, bson.M{"title": title}).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("subcategory lookup by title %q failed: %w", title, err)
	}
	return &sub, nil
}

func (m *Mongo) SkillTitles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	titles := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}

	for _, coll := range []string{collCategories, collSubCategories} {
		cursor, err := m.db.Collection(coll).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, fmt.Errorf("skill title lookup failed: %w", err)
		}

		var docs []struct {
			ID    primitive.ObjectID `bson:"_id"`
			Title string             `bson:"title"`
		}
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, fmt.Errorf("skill title lookup failed: %w", err)
		}
		for _, doc := range docs {
			// first match wins: categories take precedence over subcategories
			if _, ok := titles[doc.ID]; !ok {
				titles[doc.ID] = doc.Title
			}
		}
	}
	return titles, nil
}

func (m *Mongo) FindGeeks(ctx context.Context, q GeekQuery, page, pageSize int) ([]directory.Geek, error) {
	page, pageSize = normalizePage(page, pageSize)

	filter := And(queryPredicates(q)...)
	opts := options.Find().
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := m.db.Collection(collGeeks).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("geek query failed: %w", err)
	}
	defer cursor.Close(ctx)

	geeks := make([]directory.Geek, 0, pageSize)
	if err := cursor.All(ctx, &geeks); err != nil {
		return nil, fmt.Errorf("geek query failed: %w", err)
	}
	return geeks, nil
}

func (m *Mongo) AllGeeks(ctx context.Context) ([]directory.Geek, error) {
	cursor, err := m.db.Collection(collGeeks).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("geek listing failed: %w", err)
	}
	defer cursor.Close(ctx)

	var geeks []directory.Geek
	if err := cursor.All(ctx, &geeks); err != nil {
		return nil, fmt.Errorf("geek listing failed: %w", err)
	}
	return geeks, nil
}

func (m *Mongo) GeekByID(ctx context.Context, id string) (*directory.Geek, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var geek directory.Geek
	err = m.db.Collection(collGeeks).FindOne(ctx, bson.M{"_id": oid}).Decode(&geek)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("geek lookup %s failed: %w", id, err)
	}
	return &geek, nil
}

func (m *Mongo) AllCategories(ctx context.Context) ([]directory.Category, error) {
	cursor, err := m.db.Collection(collCategories).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("category listing failed: %w", err)
	}
	defer cursor.Close(ctx)

	var categories []directory.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("category listing failed: %w", err)
	}
	return categories, nil
}

func (m *Mongo) SubCategoryTitlesBySlug(ctx context.Context, slug string) ([]string, error) {
	cat, err := m.categoryBySlug(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(cat.SubCategoryIDs) == 0 {
		return []string{}, nil
	}

	cursor, err := m.db.Collection(collSubCategories).Find(ctx, bson.M{"_id": bson.M{"$in": cat.SubCategoryIDs}})
	if err != nil {
		return nil, fmt.Errorf("subcategory listing for slug %q failed: %w", slug, err)
	}

	var docs []struct {
		Title string `bson:"title"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("subcategory listing for slug %q failed: %w", slug, err)
	}

	titles := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Title != "" {
			titles = append(titles, doc.Title)
		}
	}
	return titles, nil
}

func (m *Mongo) BrandNamesBySlug(ctx context.Context, slug string) ([]string, error) {
	cat, err := m.categoryBySlug(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	cursor, err := m.db.Collection(collBrands).Find(ctx, bson.M{"category": cat.ID})
	if err != nil {
		return nil, fmt.Errorf("brand listing for slug %q failed: %w", slug, err)
	}

	var docs []struct {
		Name string `bson:"name"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("brand listing for slug %q failed: %w", slug, err)
	}

	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Name != "" {
			names = append(names, doc.Name)
		}
	}
	return names, nil
}

func (m *Mongo) categoryBySlug(ctx context.Context, slug string) (*directory.Category, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, ErrNotFound
	}

	var cat directory.Category
	err := m.db.Collection(collCategories).FindOne(ctx, bson.M{"slug": slug}).Decode(&cat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("category lookup by slug %q failed: %w", slug, err)
	}
	return &cat, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}
