package memoclaw

import (
	"context"
	"iter"
)

// DefaultPageSize is the page size used by ListAll when none is given.
const DefaultPageSize = 50

// ListAll iterates over every memory matching params, fetching pages lazily
// with an increasing offset. The sequence is forward-only and
// non-restartable; ranging again issues a fresh pagination from offset 0.
// Iteration stops on the first error, which is yielded with a zero Memory.
//
//	for mem, err := range client.ListAll(ctx, &memoclaw.ListParams{Namespace: "project"}) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(mem.Content)
//	}
func (c *Client) ListAll(ctx context.Context, params *ListParams) iter.Seq2[Memory, error] {
	return func(yield func(Memory, error) bool) {
		page := ListParams{}
		if params != nil {
			page = *params
		}
		if page.Limit <= 0 {
			page.Limit = DefaultPageSize
		}
		page.Offset = 0

		yielded := 0
		for {
			resp, err := c.List(ctx, &page)
			if err != nil {
				yield(Memory{}, err)
				return
			}
			for _, mem := range resp.Memories {
				if !yield(mem, nil) {
					return
				}
			}
			yielded += len(resp.Memories)
			if len(resp.Memories) == 0 || yielded >= resp.Total {
				return
			}
			// The next offset is the cumulative count yielded so far.
			page.Offset = yielded
		}
	}
}
