package store

import "fmt"

// ScopeTree holds the BFS traversal of a scope subtree.
type ScopeTree struct {
	Root    *Scope      `json:"root"`
	Visited []*ScopeHop `json:"visited"`
	// Facts counts the facts declared directly in each visited scope, by id.
	Facts map[int64]int `json:"facts,omitempty"`
}

// ScopeHop is a scope with its distance from the traversal root.
type ScopeHop struct {
	Scope *Scope `json:"scope"`
	Hop   int    `json:"hop"`
}

type bfsQueue struct {
	scopeID int64
	hop     int
}

// ScopeDescendants walks the scope tree breadth-first from rootID.
// maxDepth caps the BFS depth, maxResults caps total visited scopes.
func (s *Store) ScopeDescendants(rootID int64, maxDepth, maxResults int) (*ScopeTree, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if maxResults <= 0 {
		maxResults = 200
	}

	root, err := s.ScopeByID(rootID)
	if err != nil {
		return nil, fmt.Errorf("scope %d: %w", rootID, err)
	}
	result := &ScopeTree{Root: root, Facts: map[int64]int{}}
	visited := map[int64]bool{rootID: true}
	queue := []bfsQueue{{rootID, 0}}

	for len(queue) > 0 && len(result.Visited) < maxResults {
		item := queue[0]
		queue = queue[1:]

		if item.hop >= maxDepth {
			continue
		}

		children, err := s.ChildScopes(item.scopeID)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			// the tree is acyclic by construction; guard anyway against corrupt rows
			if visited[c.ID] {
				continue
			}
			visited[c.ID] = true
			result.Visited = append(result.Visited, &ScopeHop{Scope: c, Hop: item.hop + 1})
			queue = append(queue, bfsQueue{c.ID, item.hop + 1})
			if len(result.Visited) >= maxResults {
				break
			}
		}
	}

	for id := range visited {
		n, err := s.countScopeFacts(id)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			result.Facts[id] = n
		}
	}
	return result, nil
}

func (s *Store) countScopeFacts(scopeID int64) (int, error) {
	total := 0
	for _, k := range AllKinds {
		t := tables[k]
		if !t.scoped {
			continue
		}
		var n int
		if err := s.q.QueryRow("SELECT COUNT(*) FROM "+t.name+" WHERE namespace_id = ?", scopeID).Scan(&n); err != nil {
			return 0, fmt.Errorf("count scope facts: %w", err)
		}
		total += n
	}
	return total, nil
}
