package memoclaw

import "encoding/json"

// MemoryType classifies what kind of fact a memory records.
type MemoryType string

const (
	MemoryTypeCorrection  MemoryType = "correction"
	MemoryTypePreference  MemoryType = "preference"
	MemoryTypeDecision    MemoryType = "decision"
	MemoryTypeProject     MemoryType = "project"
	MemoryTypeObservation MemoryType = "observation"
	MemoryTypeGeneral     MemoryType = "general"
)

// RelationType names the edge kinds of the server-side relation graph.
type RelationType string

const (
	RelationRelatedTo   RelationType = "related_to"
	RelationDerivedFrom RelationType = "derived_from"
	RelationContradicts RelationType = "contradicts"
	RelationSupersedes  RelationType = "supersedes"
	RelationSupports    RelationType = "supports"
)

// Direction tags a relation edge relative to the queried memory.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// SuggestedCategory buckets proactive review suggestions.
type SuggestedCategory string

const (
	SuggestedStale    SuggestedCategory = "stale"
	SuggestedFresh    SuggestedCategory = "fresh"
	SuggestedHot      SuggestedCategory = "hot"
	SuggestedDecaying SuggestedCategory = "decaying"
)

// Optional is a tri-state field value: unset (omitted from the request),
// explicit null (clears the server-side value), or a concrete value.
// The zero Optional is unset.
type Optional[T any] struct {
	value T
	set   bool
	null  bool
}

// Some returns an Optional holding a concrete value.
func Some[T any](v T) Optional[T] { return Optional[T]{value: v, set: true} }

// Null returns an Optional that serializes as an explicit JSON null.
func Null[T any]() Optional[T] { return Optional[T]{set: true, null: true} }

// IsSet reports whether the field was provided at all.
func (o Optional[T]) IsSet() bool { return o.set }

// IsNull reports whether the field was set to explicit null.
func (o Optional[T]) IsNull() bool { return o.null }

// Value returns the concrete value and whether one is present.
func (o Optional[T]) Value() (T, bool) { return o.value, o.set && !o.null }

func (o Optional[T]) bodyValue() any {
	if o.null {
		return nil
	}
	return o.value
}

// Message is a single turn in a conversation passed to Ingest or Extract.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RelatedMemorySummary is the compact neighbor view embedded in relation edges.
type RelatedMemorySummary struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Importance float64 `json:"importance"`
	MemoryType string  `json:"memory_type"`
	Namespace  string  `json:"namespace"`
}

// RelationWithMemory is a direction-tagged relation edge plus a summary of
// the memory on the far end.
type RelationWithMemory struct {
	ID           string               `json:"id"`
	RelationType RelationType         `json:"relation_type"`
	Direction    Direction            `json:"direction"`
	Memory       RelatedMemorySummary `json:"memory"`
	Metadata     map[string]any       `json:"metadata"`
	CreatedAt    string               `json:"created_at"`
}

// Relation is a raw relation row as returned by the create endpoint.
type Relation struct {
	ID           string         `json:"id"`
	SourceID     string         `json:"source_id"`
	TargetID     string         `json:"target_id"`
	RelationType RelationType   `json:"relation_type"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    string         `json:"created_at"`
}

// Memory is the full server-side record of one stored memory.
type Memory struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Namespace      string         `json:"namespace"`
	Content        string         `json:"content"`
	EmbeddingModel string         `json:"embedding_model"`
	Metadata       map[string]any `json:"metadata"`
	Importance     float64        `json:"importance"`
	MemoryType     MemoryType     `json:"memory_type"`
	SessionID      string         `json:"session_id,omitempty"`
	AgentID        string         `json:"agent_id,omitempty"`
	Pinned         bool           `json:"pinned"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
	AccessedAt     string         `json:"accessed_at"`
	AccessCount    int            `json:"access_count"`
	DeletedAt      string         `json:"deleted_at,omitempty"`
	ExpiresAt      string         `json:"expires_at,omitempty"`
}

// RecallSignals exposes the server's per-result scoring breakdown.
type RecallSignals struct {
	Vector              float64 `json:"vector"`
	Keyword             float64 `json:"keyword"`
	Recency             float64 `json:"recency"`
	BaseImportance      float64 `json:"base_importance"`
	EffectiveImportance float64 `json:"effective_importance"`
	ContextImportance   float64 `json:"context_importance"`
	RelationCount       int     `json:"relation_count"`
	TypeDecay           float64 `json:"type_decay"`
}

// RecallMemory is one semantic-search hit.
type RecallMemory struct {
	ID          string               `json:"id"`
	Content     string               `json:"content"`
	Similarity  float64              `json:"similarity"`
	Metadata    map[string]any       `json:"metadata"`
	Importance  float64              `json:"importance"`
	MemoryType  MemoryType           `json:"memory_type"`
	Namespace   string               `json:"namespace"`
	SessionID   string               `json:"session_id,omitempty"`
	AgentID     string               `json:"agent_id,omitempty"`
	Pinned      bool                 `json:"pinned"`
	CreatedAt   string               `json:"created_at"`
	AccessCount int                  `json:"access_count"`
	Relations   []RelationWithMemory `json:"relations,omitempty"`
	Signals     *RecallSignals       `json:"_signals,omitempty"`
}

// StoreResult is the response to a single store call.
type StoreResult struct {
	ID           string `json:"id"`
	Stored       bool   `json:"stored"`
	Deduplicated bool   `json:"deduplicated"`
	TokensUsed   int    `json:"tokens_used"`
}

// StoreBatchResult aggregates one or more batch store chunks.
type StoreBatchResult struct {
	IDs               []string `json:"ids"`
	Stored            bool     `json:"stored"`
	Count             int      `json:"count"`
	DeduplicatedCount int      `json:"deduplicated_count"`
	TokensUsed        int      `json:"tokens_used"`
}

// RecallResponse wraps semantic search results.
type RecallResponse struct {
	Memories    []RecallMemory `json:"memories"`
	QueryTokens int            `json:"query_tokens"`
}

// ListResponse is one offset-paginated page of memories.
type ListResponse struct {
	Memories []Memory `json:"memories"`
	Total    int      `json:"total"`
	Limit    int      `json:"limit"`
	Offset   int      `json:"offset"`
}

// DeleteResult is the response to a single delete call.
type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id,omitempty"`
}

// DeleteBatchResult aggregates one or more batch delete chunks.
type DeleteBatchResult struct {
	Deleted int      `json:"deleted"`
	IDs     []string `json:"ids"`
}

// IngestResult summarizes facts extracted and stored from a conversation.
type IngestResult struct {
	MemoryIDs         []string `json:"memory_ids"`
	FactsExtracted    int      `json:"facts_extracted"`
	FactsStored       int      `json:"facts_stored"`
	FactsDeduplicated int      `json:"facts_deduplicated"`
	RelationsCreated  int      `json:"relations_created"`
	TokensUsed        int      `json:"tokens_used"`
}

// ExtractResult summarizes a fact extraction pass.
type ExtractResult struct {
	MemoryIDs         []string `json:"memory_ids"`
	FactsExtracted    int      `json:"facts_extracted"`
	FactsStored       int      `json:"facts_stored"`
	FactsDeduplicated int      `json:"facts_deduplicated"`
	TokensUsed        int      `json:"tokens_used"`
}

// ClusterInfo describes one similarity cluster found during consolidation.
type ClusterInfo struct {
	MemoryIDs  []string `json:"memory_ids"`
	Similarity float64  `json:"similarity"`
	MergedInto string   `json:"merged_into,omitempty"`
}

// ConsolidateResult summarizes a server-side consolidation run.
type ConsolidateResult struct {
	ClustersFound   int           `json:"clusters_found"`
	MemoriesMerged  int           `json:"memories_merged"`
	MemoriesCreated int           `json:"memories_created"`
	Clusters        []ClusterInfo `json:"clusters"`
}

// SuggestedMemory is one proactive review suggestion.
type SuggestedMemory struct {
	ID            string            `json:"id"`
	Content       string            `json:"content"`
	Metadata      map[string]any    `json:"metadata"`
	Importance    float64           `json:"importance"`
	MemoryType    string            `json:"memory_type"`
	Namespace     string            `json:"namespace"`
	SessionID     string            `json:"session_id,omitempty"`
	AgentID       string            `json:"agent_id,omitempty"`
	CreatedAt     string            `json:"created_at"`
	AccessedAt    string            `json:"accessed_at"`
	AccessCount   int               `json:"access_count"`
	RelationCount int               `json:"relation_count"`
	Category      SuggestedCategory `json:"category"`
	ReviewScore   float64           `json:"review_score"`
}

// SuggestedResponse wraps proactive suggestions grouped by category.
type SuggestedResponse struct {
	Suggested  []SuggestedMemory `json:"suggested"`
	Categories map[string]int    `json:"categories"`
	Total      int               `json:"total"`
}

type relationsResponse struct {
	Relations []RelationWithMemory `json:"relations"`
}

type historyResponse struct {
	History []HistoryEntry `json:"history"`
}

// HistoryEntry records one change to a memory.
type HistoryEntry struct {
	ID        string         `json:"id"`
	MemoryID  string         `json:"memory_id"`
	Changes   map[string]any `json:"changes"`
	CreatedAt string         `json:"created_at"`
}

// ContextResult is a prompt context assembled server-side from relevant
// memories. Context is a plain string or a structured object depending on
// the requested format.
type ContextResult struct {
	Context      json.RawMessage `json:"context"`
	MemoriesUsed int             `json:"memories_used"`
	Tokens       int             `json:"tokens"`
}

// ContextText returns the assembled context as a string when the server
// produced the plain text format.
func (r *ContextResult) ContextText() (string, bool) {
	var s string
	if err := json.Unmarshal(r.Context, &s); err != nil {
		return "", false
	}
	return s, true
}

// NamespaceInfo describes one namespace and its population.
type NamespaceInfo struct {
	Name         string `json:"name"`
	Count        int    `json:"count"`
	LastMemoryAt string `json:"last_memory_at,omitempty"`
}

// NamespacesResponse lists all namespaces owned by the wallet.
type NamespacesResponse struct {
	Namespaces []NamespaceInfo `json:"namespaces"`
	Total      int             `json:"total"`
}

// TypeCount is a per-memory-type tally.
type TypeCount struct {
	MemoryType string `json:"memory_type"`
	Count      int    `json:"count"`
}

// NamespaceCount is a per-namespace tally.
type NamespaceCount struct {
	Namespace string `json:"namespace"`
	Count     int    `json:"count"`
}

// StatsResponse is the aggregate account statistics view.
type StatsResponse struct {
	TotalMemories int              `json:"total_memories"`
	PinnedCount   int              `json:"pinned_count"`
	NeverAccessed int              `json:"never_accessed"`
	TotalAccesses int              `json:"total_accesses"`
	AvgImportance float64          `json:"avg_importance"`
	OldestMemory  string           `json:"oldest_memory,omitempty"`
	NewestMemory  string           `json:"newest_memory,omitempty"`
	ByType        []TypeCount      `json:"by_type"`
	ByNamespace   []NamespaceCount `json:"by_namespace"`
}

// ExportResponse is a bulk export of memories in the requested format.
type ExportResponse struct {
	Format   string           `json:"format"`
	Memories []map[string]any `json:"memories"`
	Count    int              `json:"count"`
}

// FreeTierStatus reports remaining free-tier quota for the wallet.
type FreeTierStatus struct {
	Wallet            string `json:"wallet"`
	FreeTierRemaining int    `json:"free_tier_remaining"`
	FreeTierTotal     int    `json:"free_tier_total"`
	FreeTierUsed      int    `json:"free_tier_used"`
}

// StoreInput is one memory in a batch store request.
type StoreInput struct {
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Importance *float64       `json:"importance,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Namespace  string         `json:"namespace,omitempty"`
	MemoryType MemoryType     `json:"memory_type,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	AgentID    string         `json:"agent_id,omitempty"`
	ExpiresAt  string         `json:"expires_at,omitempty"`
	Pinned     *bool          `json:"pinned,omitempty"`
}
