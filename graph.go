package memoclaw

import "context"

// Graph explores the relation graph breadth-first from memoryID, up to
// depth hops. It returns a map from each visited memory ID to its relation
// edges. A visited set guards against cycles, so each node is queried at
// most once; traversal ends early when a level discovers no new neighbors.
// Depth counts hops: depth 1 returns only the start node's relations.
func (c *Client) Graph(ctx context.Context, memoryID string, depth int) (map[string][]RelationWithMemory, error) {
	if err := validateNonEmpty(memoryID, "memory_id"); err != nil {
		return nil, err
	}
	if depth < 1 {
		return nil, &ValidationError{Field: "depth", Message: "must be at least 1"}
	}

	visited := make(map[string][]RelationWithMemory)
	frontier := []string{memoryID}

	for level := 0; level < depth; level++ {
		var next []string
		for _, id := range frontier {
			if _, seen := visited[id]; seen {
				continue
			}
			relations, err := c.ListRelations(ctx, id)
			if err != nil {
				return nil, err
			}
			visited[id] = relations
			for _, rel := range relations {
				if _, seen := visited[rel.Memory.ID]; !seen {
					next = append(next, rel.Memory.ID)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	return visited, nil
}

// FindRelated returns the relations of a memory, optionally filtered by
// relation type and direction. Zero values mean no filter.
func (c *Client) FindRelated(ctx context.Context, memoryID string, relationType RelationType, direction Direction) ([]RelationWithMemory, error) {
	relations, err := c.ListRelations(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	if relationType == "" && direction == "" {
		return relations, nil
	}
	filtered := relations[:0:0]
	for _, rel := range relations {
		if relationType != "" && rel.RelationType != relationType {
			continue
		}
		if direction != "" && rel.Direction != direction {
			continue
		}
		filtered = append(filtered, rel)
	}
	return filtered, nil
}
