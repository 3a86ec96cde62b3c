package memoclaw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Client talks to the MemoClaw memory-storage API. It layers wallet-signed
// authentication, retries with exponential backoff and an optional x402
// payment fallback over one shared connection pool. It is safe for
// concurrent use; hook registration is not (register before first use).
type Client struct {
	transport *transport

	beforeHooks []BeforeRequestHook
	afterHooks  []AfterResponseHook
	errorHooks  []OnErrorHook

	closeOnce sync.Once
}

// New constructs a Client. The private key, base URL, timeout, retry budget
// and pool sizing resolve in priority order: explicit option, environment
// variable, ~/.memoclaw/config.json, built-in default.
func New(opts ...Option) (*Client, error) {
	o := &clientOptions{multiplier: defaultMultiplier}
	for _, opt := range opts {
		opt(o)
	}

	if !o.skipConfig {
		s := loadSettings(o.configPath)
		if o.privateKey == "" {
			o.privateKey = s.privateKey
		}
		if o.baseURL == "" && s.baseURL != "" {
			o.baseURL = strings.TrimRight(s.baseURL, "/")
		}
		if o.timeout == 0 && s.timeout > 0 {
			o.timeout = s.timeout
		}
		if o.maxRetries == nil && s.maxRetries != nil {
			o.maxRetries = s.maxRetries
		}
		if o.maxIdleConns == 0 && s.maxIdleConns > 0 {
			o.maxIdleConns = s.maxIdleConns
		}
	}

	if o.baseURL == "" {
		o.baseURL = DefaultBaseURL
	}
	if o.timeout == 0 {
		o.timeout = DefaultTimeout
	}
	if o.baseDelay == 0 {
		o.baseDelay = defaultBaseDelay
	}
	if o.maxDelay == 0 {
		o.maxDelay = defaultMaxDelay
	}
	maxRetries := DefaultMaxRetries
	if o.maxRetries != nil {
		maxRetries = *o.maxRetries
	}

	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.privateKey == "" {
		return nil, &ValidationError{
			Field:   "private_key",
			Message: "no private key provided; pass WithPrivateKey, set MEMOCLAW_PRIVATE_KEY, or run `memoclaw init`",
		}
	}

	signer, err := newWalletSigner(o.privateKey)
	if err != nil {
		return nil, err
	}

	httpClient := o.httpClient
	if httpClient == nil {
		maxIdle := o.maxIdleConns
		if maxIdle == 0 {
			maxIdle = 100
		}
		maxIdlePerHost := o.maxIdleConnsPerHost
		if maxIdlePerHost == 0 {
			maxIdlePerHost = 10
		}
		httpClient = &http.Client{
			Timeout: o.timeout,
			Transport: &http.Transport{
				MaxIdleConns:        maxIdle,
				MaxIdleConnsPerHost: maxIdlePerHost,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		transport: &transport{
			httpClient: httpClient,
			baseURL:    o.baseURL,
			signer:     signer,
			payment:    o.payment,
			maxRetries: maxRetries,
			baseDelay:  o.baseDelay,
			maxDelay:   o.maxDelay,
			multiplier: o.multiplier,
			jitter:     o.jitter,
			limiter:    o.limiter,
			metrics:    o.metrics,
			logger:     o.logger,
			now:        time.Now,
			sleep:      sleepContext,
		},
	}, nil
}

// Address returns the wallet address derived from the configured key.
func (c *Client) Address() string {
	return c.transport.signer.address
}

// Close releases idle connections in the pool. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.transport.httpClient.CloseIdleConnections()
	})
}

// do runs one logical request through the hook chain and decodes the result.
func (c *Client) do(ctx context.Context, method, path string, body map[string]any, query url.Values, out any) error {
	for _, hook := range c.beforeHooks {
		if replaced := hook(method, path, body); replaced != nil {
			body = replaced
		}
	}

	raw, err := c.transport.request(ctx, method, path, body, query)
	if err != nil {
		for _, hook := range c.errorHooks {
			hook(method, path, err)
		}
		return err
	}

	for _, hook := range c.afterHooks {
		if replaced := hook(method, path, raw); replaced != nil {
			raw = replaced
		}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("memoclaw: decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// StoreOptions are the optional fields of a Store call.
type StoreOptions struct {
	Importance *float64
	Tags       []string
	Namespace  string
	MemoryType MemoryType
	SessionID  string
	AgentID    string
	ExpiresAt  string
	Pinned     *bool
	Metadata   map[string]any
}

func buildStoreBody(content string, opts *StoreOptions) map[string]any {
	body := map[string]any{"content": content}
	if opts == nil {
		return body
	}
	if opts.Importance != nil {
		body["importance"] = *opts.Importance
	}
	if opts.Namespace != "" {
		body["namespace"] = opts.Namespace
	}
	if opts.MemoryType != "" {
		body["memory_type"] = opts.MemoryType
	}
	if opts.SessionID != "" {
		body["session_id"] = opts.SessionID
	}
	if opts.AgentID != "" {
		body["agent_id"] = opts.AgentID
	}
	if opts.ExpiresAt != "" {
		body["expires_at"] = opts.ExpiresAt
	}
	if opts.Pinned != nil {
		body["pinned"] = *opts.Pinned
	}
	if opts.Tags != nil || opts.Metadata != nil {
		md := map[string]any{}
		for k, v := range opts.Metadata {
			md[k] = v
		}
		if opts.Tags != nil {
			md["tags"] = opts.Tags
		}
		body["metadata"] = md
	}
	return body
}

// Store saves one memory. opts may be nil.
func (c *Client) Store(ctx context.Context, content string, opts *StoreOptions) (*StoreResult, error) {
	if err := validateNonEmpty(content, "content"); err != nil {
		return nil, err
	}
	if opts != nil && opts.Importance != nil {
		if err := validateUnitRange(*opts.Importance, "importance"); err != nil {
			return nil, err
		}
	}
	var result StoreResult
	if err := c.do(ctx, http.MethodPost, "/v1/store", buildStoreBody(content, opts), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RecallOptions are the optional fields of a Recall call.
type RecallOptions struct {
	Limit            int
	MinSimilarity    *float64
	Namespace        string
	Tags             []string
	IncludeRelations *bool
	SessionID        string
	AgentID          string
	After            string
	MemoryType       MemoryType
}

// Recall performs semantic search over stored memories. opts may be nil.
func (c *Client) Recall(ctx context.Context, query string, opts *RecallOptions) (*RecallResponse, error) {
	if err := validateNonEmpty(query, "query"); err != nil {
		return nil, err
	}
	body := map[string]any{"query": query}
	if opts != nil {
		if opts.MinSimilarity != nil {
			if err := validateUnitRange(*opts.MinSimilarity, "min_similarity"); err != nil {
				return nil, err
			}
			body["min_similarity"] = *opts.MinSimilarity
		}
		if opts.Limit > 0 {
			body["limit"] = opts.Limit
		}
		if opts.Namespace != "" {
			body["namespace"] = opts.Namespace
		}
		if opts.SessionID != "" {
			body["session_id"] = opts.SessionID
		}
		if opts.AgentID != "" {
			body["agent_id"] = opts.AgentID
		}
		if opts.IncludeRelations != nil {
			body["include_relations"] = *opts.IncludeRelations
		}
		if opts.Tags != nil || opts.After != "" || opts.MemoryType != "" {
			filters := map[string]any{}
			if opts.Tags != nil {
				filters["tags"] = opts.Tags
			}
			if opts.After != "" {
				filters["after"] = opts.After
			}
			if opts.MemoryType != "" {
				filters["memory_type"] = opts.MemoryType
			}
			body["filters"] = filters
		}
	}
	var result RecallResponse
	if err := c.do(ctx, http.MethodPost, "/v1/recall", body, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search is an alias for Recall.
func (c *Client) Search(ctx context.Context, query string, opts *RecallOptions) (*RecallResponse, error) {
	return c.Recall(ctx, query, opts)
}

// ListParams filter and paginate a List call.
type ListParams struct {
	Limit     int
	Offset    int
	Namespace string
	Tags      []string
	SessionID string
	AgentID   string
}

func (p *ListParams) query() url.Values {
	q := url.Values{}
	if p == nil {
		return q
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Namespace != "" {
		q.Set("namespace", p.Namespace)
	}
	if len(p.Tags) > 0 {
		q.Set("tags", strings.Join(p.Tags, ","))
	}
	if p.SessionID != "" {
		q.Set("session_id", p.SessionID)
	}
	if p.AgentID != "" {
		q.Set("agent_id", p.AgentID)
	}
	return q
}

// List returns one offset-paginated page of memories. params may be nil.
func (c *Client) List(ctx context.Context, params *ListParams) (*ListResponse, error) {
	var result ListResponse
	if err := c.do(ctx, http.MethodGet, "/v1/memories", nil, params.query(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get retrieves a single memory by ID.
func (c *Client) Get(ctx context.Context, memoryID string) (*Memory, error) {
	if err := validateNonEmpty(memoryID, "memory_id"); err != nil {
		return nil, err
	}
	var result Memory
	if err := c.do(ctx, http.MethodGet, "/v1/memories/"+url.PathEscape(memoryID), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateParams carry the fields to change on a memory. Nil pointer fields
// are omitted. ExpiresAt is tri-state: unset leaves the expiration alone,
// Null clears it, Some replaces it.
type UpdateParams struct {
	Content    *string
	Metadata   map[string]any
	Importance *float64
	MemoryType *MemoryType
	Namespace  *string
	Pinned     *bool
	ExpiresAt  Optional[string]
}

// Update patches a memory by ID. Only provided fields change.
func (c *Client) Update(ctx context.Context, memoryID string, params UpdateParams) (*Memory, error) {
	if err := validateNonEmpty(memoryID, "memory_id"); err != nil {
		return nil, err
	}
	if params.Importance != nil {
		if err := validateUnitRange(*params.Importance, "importance"); err != nil {
			return nil, err
		}
	}
	body := map[string]any{}
	if params.Content != nil {
		body["content"] = *params.Content
	}
	if params.Metadata != nil {
		body["metadata"] = params.Metadata
	}
	if params.Importance != nil {
		body["importance"] = *params.Importance
	}
	if params.MemoryType != nil {
		body["memory_type"] = *params.MemoryType
	}
	if params.Namespace != nil {
		body["namespace"] = *params.Namespace
	}
	if params.Pinned != nil {
		body["pinned"] = *params.Pinned
	}
	if params.ExpiresAt.IsSet() {
		body["expires_at"] = params.ExpiresAt.bodyValue()
	}
	var result Memory
	if err := c.do(ctx, http.MethodPatch, "/v1/memories/"+url.PathEscape(memoryID), body, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a memory by ID.
func (c *Client) Delete(ctx context.Context, memoryID string) (*DeleteResult, error) {
	if err := validateNonEmpty(memoryID, "memory_id"); err != nil {
		return nil, err
	}
	var result DeleteResult
	if err := c.do(ctx, http.MethodDelete, "/v1/memories/"+url.PathEscape(memoryID), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IngestOptions configure a conversation ingestion.
type IngestOptions struct {
	Messages   []Message
	Text       string
	Namespace  string
	SessionID  string
	AgentID    string
	AutoRelate *bool
}

// Ingest auto-extracts and stores facts from a conversation or free text.
func (c *Client) Ingest(ctx context.Context, opts IngestOptions) (*IngestResult, error) {
	if len(opts.Messages) == 0 && strings.TrimSpace(opts.Text) == "" {
		return nil, &ValidationError{Field: "ingest", Message: "either messages or text is required"}
	}
	body := map[string]any{}
	if opts.Messages != nil {
		body["messages"] = opts.Messages
	}
	if opts.Text != "" {
		body["text"] = opts.Text
	}
	if opts.Namespace != "" {
		body["namespace"] = opts.Namespace
	}
	if opts.SessionID != "" {
		body["session_id"] = opts.SessionID
	}
	if opts.AgentID != "" {
		body["agent_id"] = opts.AgentID
	}
	if opts.AutoRelate != nil {
		body["auto_relate"] = *opts.AutoRelate
	}
	var result IngestResult
	if err := c.do(ctx, http.MethodPost, "/v1/ingest", body, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExtractOptions scope a fact extraction.
type ExtractOptions struct {
	Namespace string
	SessionID string
	AgentID   string
}

// Extract pulls structured facts out of a conversation. opts may be nil.
func (c *Client) Extract(ctx context.Context, messages []Message, opts *ExtractOptions) (*ExtractResult, error) {
	if len(messages) == 0 {
		return nil, &ValidationError{Field: "messages", Message: "must not be empty"}
	}
	body := map[string]any{"messages": messages}
	if opts != nil {
		if opts.Namespace != "" {
			body["namespace"] = opts.Namespace
		}
		if opts.SessionID != "" {
			body["session_id"] = opts.SessionID
		}
		if opts.AgentID != "" {
			body["agent_id"] = opts.AgentID
		}
	}
	var result ExtractResult
	if err := c.do(ctx, http.MethodPost, "/v1/memories/extract", body, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ConsolidateOptions configure a server-side consolidation run.
type ConsolidateOptions struct {
	Namespace     string
	MinSimilarity *float64
	Mode          string
	DryRun        *bool
}

// Consolidate merges similar memories by clustering. opts may be nil.
func (c *Client) Consolidate(ctx context.Context, opts *ConsolidateOptions) (*ConsolidateResult, error) {
	body := map[string]any{}
	if opts != nil {
		if opts.MinSimilarity != nil {
			if err := validateUnitRange(*opts.MinSimilarity, "min_similarity"); err != nil {
				return nil, err
			}
			body["min_similarity"] = *opts.MinSimilarity
		}
		if opts.Namespace != "" {
			body["namespace"] = opts.Namespace
		}
		if opts.Mode != "" {
			body["mode"] = opts.Mode
		}
		if opts.DryRun != nil {
			body["dry_run"] = *opts.DryRun
		}
	}
	var result ConsolidateResult
	if err := c.do(ctx, http.MethodPost, "/v1/memories/consolidate", body, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SuggestedOptions filter proactive memory suggestions.
type SuggestedOptions struct {
	Limit     int
	Namespace string
	SessionID string
	AgentID   string
	Category  SuggestedCategory
}

// Suggested returns proactive review suggestions. opts may be nil.
func (c *Client) Suggested(ctx context.Context, opts *SuggestedOptions) (*SuggestedResponse, error) {
	q := url.Values{}
	if opts != nil {
		if opts.Limit > 0 {
			q.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Namespace != "" {
			q.Set("namespace", opts.Namespace)
		}
		if opts.SessionID != "" {
			q.Set("session_id", opts.SessionID)
		}
		if opts.AgentID != "" {
			q.Set("agent_id", opts.AgentID)
		}
		if opts.Category != "" {
			q.Set("category", string(opts.Category))
		}
	}
	var result SuggestedResponse
	if err := c.do(ctx, http.MethodGet, "/v1/suggested", nil, q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateRelation links two memories with a typed edge. metadata may be nil.
func (c *Client) CreateRelation(ctx context.Context, memoryID, targetID string, relationType RelationType, metadata map[string]any) (*Relation, error) {
	if err := validateNonEmpty(memoryID, "memory_id"); err != nil {
		return nil, err
	}
	if err := validateNonEmpty(targetID, "target_id"); err != nil {
		return nil, err
	}
	body := map[string]any{
		"target_id":     targetID,
		"relation_type": relationType,
	}
	if metadata != nil {
		body["metadata"] = metadata
	}
	var result Relation
	if err := c.do(ctx, http.MethodPost, "/v1/memories/"+url.PathEscape(memoryID)+"/relations", body, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRelations returns all relation edges touching a memory.
func (c *Client) ListRelations(ctx context.Context, memoryID string) ([]RelationWithMemory, error) {
	if err := validateNonEmpty(memoryID, "memory_id"); err != nil {
		return nil, err
	}
	var result relationsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/memories/"+url.PathEscape(memoryID)+"/relations", nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Relations, nil
}

// DeleteRelation removes one relation edge.
func (c *Client) DeleteRelation(ctx context.Context, memoryID, relationID string) (*DeleteResult, error) {
	if err := validateNonEmpty(memoryID, "memory_id"); err != nil {
		return nil, err
	}
	if err := validateNonEmpty(relationID, "relation_id"); err != nil {
		return nil, err
	}
	var result DeleteResult
	path := "/v1/memories/" + url.PathEscape(memoryID) + "/relations/" + url.PathEscape(relationID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Status reports remaining free-tier quota for the wallet.
func (c *Client) Status(ctx context.Context) (*FreeTierStatus, error) {
	var result FreeTierStatus
	if err := c.do(ctx, http.MethodGet, "/v1/free-tier/status", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ContextOptions configure server-side context assembly.
type ContextOptions struct {
	Namespace       string
	MaxMemories     int
	MaxTokens       int
	Format          string
	IncludeMetadata *bool
	Summarize       *bool
}

// AssembleContext builds a prompt context from memories relevant to the
// query. opts may be nil.
func (c *Client) AssembleContext(ctx context.Context, query string, opts *ContextOptions) (*ContextResult, error) {
	if err := validateNonEmpty(query, "query"); err != nil {
		return nil, err
	}
	body := map[string]any{"query": query}
	if opts != nil {
		if opts.Namespace != "" {
			body["namespace"] = opts.Namespace
		}
		if opts.MaxMemories > 0 {
			body["max_memories"] = opts.MaxMemories
		}
		if opts.MaxTokens > 0 {
			body["max_tokens"] = opts.MaxTokens
		}
		if opts.Format != "" {
			body["format"] = opts.Format
		}
		if opts.IncludeMetadata != nil {
			body["include_metadata"] = *opts.IncludeMetadata
		}
		if opts.Summarize != nil {
			body["summarize"] = *opts.Summarize
		}
	}
	var result ContextResult
	if err := c.do(ctx, http.MethodPost, "/v1/context", body, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListNamespaces enumerates namespaces owned by the wallet.
func (c *Client) ListNamespaces(ctx context.Context) (*NamespacesResponse, error) {
	var result NamespacesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/namespaces", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats returns aggregate account statistics.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	var result StatsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/stats", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExportOptions filter a bulk export.
type ExportOptions struct {
	Format         string
	Namespace      string
	Tags           []string
	IncludeDeleted bool
}

// Export downloads memories in bulk. opts may be nil.
func (c *Client) Export(ctx context.Context, opts *ExportOptions) (*ExportResponse, error) {
	q := url.Values{}
	if opts != nil {
		if opts.Format != "" {
			q.Set("format", opts.Format)
		}
		if opts.Namespace != "" {
			q.Set("namespace", opts.Namespace)
		}
		if len(opts.Tags) > 0 {
			q.Set("tags", strings.Join(opts.Tags, ","))
		}
		if opts.IncludeDeleted {
			q.Set("include_deleted", "true")
		}
	}
	var result ExportResponse
	if err := c.do(ctx, http.MethodGet, "/v1/export", nil, q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// History returns the change log of one memory, newest first.
func (c *Client) History(ctx context.Context, memoryID string) ([]HistoryEntry, error) {
	if err := validateNonEmpty(memoryID, "memory_id"); err != nil {
		return nil, err
	}
	var result historyResponse
	if err := c.do(ctx, http.MethodGet, "/v1/memories/"+url.PathEscape(memoryID)+"/history", nil, nil, &result); err != nil {
		return nil, err
	}
	return result.History, nil
}
