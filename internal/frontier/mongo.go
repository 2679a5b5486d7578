package frontier

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nao1215/topiccrawl/internal/model"
)

// mongoConnectTimeout bounds connecting, pinging and index creation.
const mongoConnectTimeout = 10 * time.Second

// MongoStore keeps the frontier in a MongoDB collection with a unique
// index on (base_url, url).
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// mongoRecord is the document layout of one frontier row.
type mongoRecord struct {
	BaseURL      string      `bson:"base_url"`
	URL          string      `bson:"url"`
	SourceURL    *string     `bson:"source_url"`
	Depth        int         `bson:"depth"`
	Title        *string     `bson:"title"`
	LinksToTexts []mongoLink `bson:"links_to_texts"`
	Topic        string      `bson:"topic"`
	Status       string      `bson:"status"`
	UpdatedAt    time.Time   `bson:"updated_at"`
}

// mongoLink is one element of the links_to_texts array. URLs contain dots,
// so they are stored as values and never as field names.
type mongoLink struct {
	URL  string `bson:"url"`
	Text string `bson:"text"`
}

// toMongoLinks converts links to an array ordered by URL.
func toMongoLinks(links map[string]string) []mongoLink {
	out := make([]mongoLink, 0, len(links))
	for u, text := range links {
		out = append(out, mongoLink{URL: u, Text: text})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// fromMongoLinks converts a stored link array back to a map.
func fromMongoLinks(links []mongoLink) map[string]string {
	out := make(map[string]string, len(links))
	for _, l := range links {
		out[l.URL] = l.Text
	}
	return out
}

// OpenMongo connects to uri and prepares the collection.
// Empty database and collection names select "topiccrawl" and DefaultTable.
func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if database == "" {
		database = "topiccrawl"
	}
	if collection == "" {
		collection = DefaultTable
	}

	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
	if err := store.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return store, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "base_url", Value: 1}, {Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "base_url", Value: 1}, {Key: "status", Value: 1}, {Key: "depth", Value: 1}},
		},
	})
	return err
}

func recordFilter(baseURL, url string) bson.D {
	return bson.D{{Key: "base_url", Value: baseURL}, {Key: "url", Value: url}}
}

// Enqueue records url as queued unless (baseURL, url) already exists.
func (s *MongoStore) Enqueue(ctx context.Context, baseURL, url string, sourceURL *string, depth int) error {
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "source_url", Value: sourceURL},
		{Key: "depth", Value: depth},
		{Key: "title", Value: nil},
		{Key: "links_to_texts", Value: []mongoLink{}},
		{Key: "topic", Value: model.DefaultTopic},
		{Key: "status", Value: model.StatusQueued.String()},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}

	_, err := s.collection.UpdateOne(ctx, recordFilter(baseURL, url), update, options.Update().SetUpsert(true))
	// A concurrent upsert of the same key already inserted the row.
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to enqueue url: %w", err)
	}
	return nil
}

// CompleteWithContent stores the content of a fetched page and marks it completed.
func (s *MongoStore) CompleteWithContent(ctx context.Context, baseURL string, page model.CompletedPage) error {
	title := page.Title
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "title", Value: &title},
			{Key: "links_to_texts", Value: toMongoLinks(page.LinksToTexts)},
			{Key: "topic", Value: normalizeTopic(page.Topic)},
			{Key: "status", Value: model.StatusCompleted.String()},
			{Key: "updated_at", Value: time.Now().UTC()},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "source_url", Value: page.SourceURL},
			{Key: "depth", Value: page.Depth},
		}},
	}

	filter := recordFilter(baseURL, page.URL)
	opts := options.Update().SetUpsert(true)
	_, err := s.collection.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		_, err = s.collection.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return fmt.Errorf("failed to complete url: %w", err)
	}
	return nil
}

// MarkCompletedEmpty marks an existing row completed without content.
func (s *MongoStore) MarkCompletedEmpty(ctx context.Context, baseURL, url string) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: model.StatusCompleted.String()},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}

	if _, err := s.collection.UpdateOne(ctx, recordFilter(baseURL, url), update); err != nil {
		return fmt.Errorf("failed to mark url completed: %w", err)
	}
	return nil
}

// RecoverPending returns every queued row of baseURL.
func (s *MongoStore) RecoverPending(ctx context.Context, baseURL string) ([]model.PendingURL, error) {
	filter := bson.D{
		{Key: "base_url", Value: baseURL},
		{Key: "status", Value: model.StatusQueued.String()},
	}
	docs, err := s.find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending urls: %w", err)
	}

	pending := make([]model.PendingURL, 0, len(docs))
	for _, doc := range docs {
		pending = append(pending, model.PendingURL{
			URL:       doc.URL,
			SourceURL: doc.SourceURL,
			Depth:     doc.Depth,
		})
	}
	return pending, nil
}

// AllRecords returns every row of baseURL.
func (s *MongoStore) AllRecords(ctx context.Context, baseURL string) ([]model.URLRecord, error) {
	docs, err := s.find(ctx, bson.D{{Key: "base_url", Value: baseURL}})
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	records := make([]model.URLRecord, 0, len(docs))
	for _, doc := range docs {
		status, err := parseStatus(doc.Status)
		if err != nil {
			return nil, err
		}
		records = append(records, model.URLRecord{
			BaseURL:      doc.BaseURL,
			URL:          doc.URL,
			SourceURL:    doc.SourceURL,
			Depth:        doc.Depth,
			Title:        doc.Title,
			LinksToTexts: fromMongoLinks(doc.LinksToTexts),
			Topic:        normalizeTopic(doc.Topic),
			Status:       status,
		})
	}
	return records, nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.D) ([]mongoRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "depth", Value: 1}, {Key: "url", Value: 1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []mongoRecord
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// BaseURLs returns every crawl root stored in the collection.
func (s *MongoStore) BaseURLs(ctx context.Context) ([]string, error) {
	values, err := s.collection.Distinct(ctx, "base_url", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list base urls: %w", err)
	}

	roots := make([]string, 0, len(values))
	for _, v := range values {
		if root, ok := v.(string); ok {
			roots = append(roots, root)
		}
	}
	sort.Strings(roots)
	return roots, nil
}

// Purge deletes every row of baseURL.
func (s *MongoStore) Purge(ctx context.Context, baseURL string) error {
	if _, err := s.collection.DeleteMany(ctx, bson.D{{Key: "base_url", Value: baseURL}}); err != nil {
		return fmt.Errorf("failed to purge records: %w", err)
	}
	return nil
}

var _ Store = (*MongoStore)(nil)
