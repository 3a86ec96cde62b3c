package memoclaw

import (
	"context"
	"net/http"
)

const (
	// MaxStoreBatchSize is the per-call limit of the batch store endpoint.
	MaxStoreBatchSize = 100
	// MaxDeleteBatchSize is the per-call limit of the batch delete endpoint.
	MaxDeleteBatchSize = 50
)

// StoreBatch stores any number of memories, transparently splitting them
// into chunks of at most MaxStoreBatchSize and aggregating the per-chunk
// results. A chunk failure aborts the remaining chunks and propagates.
func (c *Client) StoreBatch(ctx context.Context, memories []StoreInput) (*StoreBatchResult, error) {
	if len(memories) == 0 {
		return nil, &ValidationError{Field: "memories", Message: "must not be empty"}
	}
	for i := range memories {
		if err := validateNonEmpty(memories[i].Content, "content"); err != nil {
			return nil, err
		}
		if memories[i].Importance != nil {
			if err := validateUnitRange(*memories[i].Importance, "importance"); err != nil {
				return nil, err
			}
		}
	}

	combined := &StoreBatchResult{Stored: true}
	for start := 0; start < len(memories); start += MaxStoreBatchSize {
		end := min(start+MaxStoreBatchSize, len(memories))

		var result StoreBatchResult
		body := map[string]any{"memories": memories[start:end]}
		if err := c.do(ctx, http.MethodPost, "/v1/store/batch", body, nil, &result); err != nil {
			return nil, err
		}

		combined.IDs = append(combined.IDs, result.IDs...)
		combined.Count += result.Count
		combined.DeduplicatedCount += result.DeduplicatedCount
		combined.TokensUsed += result.TokensUsed
		combined.Stored = combined.Stored && result.Stored
	}
	return combined, nil
}

// DeleteBatch deletes memories by ID, transparently splitting the list into
// chunks of at most MaxDeleteBatchSize and aggregating the per-chunk
// results. A chunk failure aborts the remaining chunks and propagates.
func (c *Client) DeleteBatch(ctx context.Context, memoryIDs []string) (*DeleteBatchResult, error) {
	if len(memoryIDs) == 0 {
		return nil, &ValidationError{Field: "memory_ids", Message: "must not be empty"}
	}
	for _, id := range memoryIDs {
		if err := validateNonEmpty(id, "memory_id"); err != nil {
			return nil, err
		}
	}

	combined := &DeleteBatchResult{}
	for start := 0; start < len(memoryIDs); start += MaxDeleteBatchSize {
		end := min(start+MaxDeleteBatchSize, len(memoryIDs))

		var result DeleteBatchResult
		body := map[string]any{"ids": memoryIDs[start:end]}
		if err := c.do(ctx, http.MethodPost, "/v1/memories/batch-delete", body, nil, &result); err != nil {
			return nil, err
		}

		combined.Deleted += result.Deleted
		combined.IDs = append(combined.IDs, result.IDs...)
	}
	return combined, nil
}
