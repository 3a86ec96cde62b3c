package memoclaw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStoreBatchChunking(t *testing.T) {
	var chunkSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/store/batch" {
			t.Errorf("Expected path /v1/store/batch, got %s", r.URL.Path)
		}
		var body struct {
			Memories []StoreInput `json:"memories"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		chunkSizes = append(chunkSizes, len(body.Memories))

		ids := make([]string, len(body.Memories))
		for i := range ids {
			ids[i] = fmt.Sprintf("m%d-%d", len(chunkSizes), i)
		}
		resp, _ := json.Marshal(map[string]any{
			"ids":                ids,
			"stored":             true,
			"count":              len(ids),
			"deduplicated_count": 1,
			"tokens_used":        len(ids) * 2,
		})
		writeJSON(t, w, http.StatusOK, string(resp))
	}))
	defer server.Close()

	memories := make([]StoreInput, 150)
	for i := range memories {
		memories[i] = StoreInput{Content: fmt.Sprintf("memory %d", i)}
	}

	client := newTestClient(t, server.URL)
	result, err := client.StoreBatch(context.Background(), memories)
	if err != nil {
		t.Fatalf("StoreBatch() returned error: %v", err)
	}

	if len(chunkSizes) != 2 || chunkSizes[0] != 100 || chunkSizes[1] != 50 {
		t.Errorf("Expected chunks [100 50], got %v", chunkSizes)
	}
	if result.Count != 150 {
		t.Errorf("Expected aggregated count 150, got %d", result.Count)
	}
	if len(result.IDs) != 150 {
		t.Errorf("Expected 150 ids, got %d", len(result.IDs))
	}
	if result.DeduplicatedCount != 2 {
		t.Errorf("Expected deduplicated_count summed to 2, got %d", result.DeduplicatedCount)
	}
	if result.TokensUsed != 300 {
		t.Errorf("Expected tokens_used summed to 300, got %d", result.TokensUsed)
	}
	if !result.Stored {
		t.Error("Expected stored=true when every chunk stored")
	}
}

func TestStoreBatchValidatesUpfront(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")

	if _, err := client.StoreBatch(context.Background(), nil); err == nil {
		t.Error("Expected error for empty batch")
	}

	bad := 2.0
	_, err := client.StoreBatch(context.Background(), []StoreInput{
		{Content: "ok"},
		{Content: "also ok", Importance: &bad},
	})
	// Validation happens before any chunk is sent.
	if err == nil {
		t.Error("Expected error for out-of-range importance")
	}
}

func TestDeleteBatchChunking(t *testing.T) {
	var chunkSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/memories/batch-delete" {
			t.Errorf("Expected path /v1/memories/batch-delete, got %s", r.URL.Path)
		}
		var body struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		chunkSizes = append(chunkSizes, len(body.IDs))

		resp, _ := json.Marshal(map[string]any{
			"deleted": len(body.IDs),
			"ids":     body.IDs,
		})
		writeJSON(t, w, http.StatusOK, string(resp))
	}))
	defer server.Close()

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%d", i)
	}

	client := newTestClient(t, server.URL)
	result, err := client.DeleteBatch(context.Background(), ids)
	if err != nil {
		t.Fatalf("DeleteBatch() returned error: %v", err)
	}

	if len(chunkSizes) != 3 || chunkSizes[0] != 50 || chunkSizes[1] != 50 || chunkSizes[2] != 20 {
		t.Errorf("Expected chunks [50 50 20], got %v", chunkSizes)
	}
	if result.Deleted != 120 {
		t.Errorf("Expected 120 deleted, got %d", result.Deleted)
	}
	if len(result.IDs) != 120 {
		t.Errorf("Expected 120 ids echoed, got %d", len(result.IDs))
	}
}

func TestDeleteBatchFailureAborts(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			writeJSON(t, w, http.StatusForbidden, `{"error":{"code":"FORBIDDEN","message":"not yours"}}`)
			return
		}
		writeJSON(t, w, http.StatusOK, `{"deleted":50,"ids":[]}`)
	}))
	defer server.Close()

	ids := make([]string, 150)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%d", i)
	}

	client := newTestClient(t, server.URL)
	_, err := client.DeleteBatch(context.Background(), ids)
	if err == nil {
		t.Fatal("Expected error from failing chunk")
	}
	if calls != 2 {
		t.Errorf("Expected remaining chunks skipped after failure, got %d calls", calls)
	}
}
