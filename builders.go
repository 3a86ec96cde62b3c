package memoclaw

import (
	"context"
	"time"
)

// StoreBuilder assembles a store request fluently. Obtain one from
// Client.NewStore, chain setters, then call Do, or call Input to feed a
// batch.
//
//	result, err := client.NewStore("User prefers dark mode").
//	    Importance(0.9).
//	    Tags("preferences", "ui").
//	    Namespace("app-settings").
//	    MemoryType(memoclaw.MemoryTypePreference).
//	    Pinned(true).
//	    Do(ctx)
type StoreBuilder struct {
	client  *Client
	content string
	opts    StoreOptions
}

// NewStore starts a fluent store request for the given content.
func (c *Client) NewStore(content string) *StoreBuilder {
	return &StoreBuilder{client: c, content: content}
}

// Importance sets the importance score (0.0 to 1.0).
func (b *StoreBuilder) Importance(importance float64) *StoreBuilder {
	b.opts.Importance = &importance
	return b
}

// Tags replaces the tag list.
func (b *StoreBuilder) Tags(tags ...string) *StoreBuilder {
	b.opts.Tags = tags
	return b
}

// AddTag appends a single tag.
func (b *StoreBuilder) AddTag(tag string) *StoreBuilder {
	b.opts.Tags = append(b.opts.Tags, tag)
	return b
}

// Namespace sets the namespace.
func (b *StoreBuilder) Namespace(namespace string) *StoreBuilder {
	b.opts.Namespace = namespace
	return b
}

// MemoryType sets the memory type.
func (b *StoreBuilder) MemoryType(memoryType MemoryType) *StoreBuilder {
	b.opts.MemoryType = memoryType
	return b
}

// Session scopes the memory to a session.
func (b *StoreBuilder) Session(sessionID string) *StoreBuilder {
	b.opts.SessionID = sessionID
	return b
}

// Agent scopes the memory to an agent.
func (b *StoreBuilder) Agent(agentID string) *StoreBuilder {
	b.opts.AgentID = agentID
	return b
}

// ExpiresAt sets an absolute expiration timestamp (RFC 3339).
func (b *StoreBuilder) ExpiresAt(expiresAt string) *StoreBuilder {
	b.opts.ExpiresAt = expiresAt
	return b
}

// ExpiresIn sets the expiration relative to now.
func (b *StoreBuilder) ExpiresIn(d time.Duration) *StoreBuilder {
	b.opts.ExpiresAt = time.Now().UTC().Add(d).Format(time.RFC3339)
	return b
}

// Pinned marks the memory as pinned.
func (b *StoreBuilder) Pinned(pinned bool) *StoreBuilder {
	b.opts.Pinned = &pinned
	return b
}

// Metadata replaces the custom metadata map.
func (b *StoreBuilder) Metadata(metadata map[string]any) *StoreBuilder {
	b.opts.Metadata = metadata
	return b
}

// AddMetadata sets a single metadata key.
func (b *StoreBuilder) AddMetadata(key string, value any) *StoreBuilder {
	if b.opts.Metadata == nil {
		b.opts.Metadata = map[string]any{}
	}
	b.opts.Metadata[key] = value
	return b
}

// Input returns the accumulated request as a StoreInput for StoreBatch.
func (b *StoreBuilder) Input() StoreInput {
	return StoreInput{
		Content:    b.content,
		Metadata:   b.opts.Metadata,
		Importance: b.opts.Importance,
		Tags:       b.opts.Tags,
		Namespace:  b.opts.Namespace,
		MemoryType: b.opts.MemoryType,
		SessionID:  b.opts.SessionID,
		AgentID:    b.opts.AgentID,
		ExpiresAt:  b.opts.ExpiresAt,
		Pinned:     b.opts.Pinned,
	}
}

// Do executes the store request.
func (b *StoreBuilder) Do(ctx context.Context) (*StoreResult, error) {
	return b.client.Store(ctx, b.content, &b.opts)
}

// RecallBuilder assembles a semantic search fluently. Obtain one from
// Client.NewRecall, chain setters, then call Do.
//
//	results, err := client.NewRecall("user interface preferences").
//	    Limit(10).
//	    MinSimilarity(0.7).
//	    Namespace("app-settings").
//	    IncludeRelations(true).
//	    Do(ctx)
type RecallBuilder struct {
	client *Client
	query  string
	opts   RecallOptions
}

// NewRecall starts a fluent recall for the given query.
func (c *Client) NewRecall(query string) *RecallBuilder {
	return &RecallBuilder{client: c, query: query}
}

// Limit caps the number of results.
func (b *RecallBuilder) Limit(limit int) *RecallBuilder {
	b.opts.Limit = limit
	return b
}

// MinSimilarity sets the similarity floor (0.0 to 1.0).
func (b *RecallBuilder) MinSimilarity(minSimilarity float64) *RecallBuilder {
	b.opts.MinSimilarity = &minSimilarity
	return b
}

// Namespace filters by namespace.
func (b *RecallBuilder) Namespace(namespace string) *RecallBuilder {
	b.opts.Namespace = namespace
	return b
}

// Tags filters by tags.
func (b *RecallBuilder) Tags(tags ...string) *RecallBuilder {
	b.opts.Tags = tags
	return b
}

// Session filters by session.
func (b *RecallBuilder) Session(sessionID string) *RecallBuilder {
	b.opts.SessionID = sessionID
	return b
}

// Agent filters by agent.
func (b *RecallBuilder) Agent(agentID string) *RecallBuilder {
	b.opts.AgentID = agentID
	return b
}

// After filters to memories created after the given timestamp (RFC 3339).
func (b *RecallBuilder) After(after string) *RecallBuilder {
	b.opts.After = after
	return b
}

// IncludeRelations requests related memories with each hit.
func (b *RecallBuilder) IncludeRelations(include bool) *RecallBuilder {
	b.opts.IncludeRelations = &include
	return b
}

// MemoryType filters by memory type.
func (b *RecallBuilder) MemoryType(memoryType MemoryType) *RecallBuilder {
	b.opts.MemoryType = memoryType
	return b
}

// Do executes the recall.
func (b *RecallBuilder) Do(ctx context.Context) (*RecallResponse, error) {
	return b.client.Recall(ctx, b.query, &b.opts)
}
