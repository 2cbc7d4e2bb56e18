package extract

import (
	"fmt"
	"sort"

	"crt/internal/embedder"
)

// Cluster groups claim IDs judged semantically related.
type Cluster struct {
	ClusterID string
	ClaimIDs  []string
}

// ClusterClaims groups claims by single-link agglomeration over cosine
// similarity: any two claims whose embeddings are at least threshold
// similar end up in the same cluster, transitively. Ported from
// original_source/sse/clustering.py's agglomerative fallback path (average
// linkage, distance_threshold=0.5, i.e. cosine similarity >= 0.5) -- no
// example repo in the pack carries a clustering library (HDBSCAN/
// scikit-learn has no Go ecosystem equivalent here), so this is a direct,
// justified stdlib union-find rather than a call to one (see DESIGN.md).
// Clusters smaller than minClusterSize are dropped, matching the Python
// original's min_cluster_size filter.
func ClusterClaims(claimIDs []string, embeddings map[string][]float32, threshold float64, minClusterSize int) []Cluster {
	n := len(claimIDs)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for i := 0; i < n; i++ {
		vi, ok := embeddings[claimIDs[i]]
		if !ok {
			continue
		}
		for j := i + 1; j < n; j++ {
			vj, ok := embeddings[claimIDs[j]]
			if !ok {
				continue
			}
			if embedder.Cosine(vi, vj) >= threshold {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]string)
	for i, id := range claimIDs {
		root := find(i)
		groups[root] = append(groups[root], id)
	}

	var roots []int
	for r := range groups {
		roots = append(roots, r)
	}
	sort.Ints(roots)

	var clusters []Cluster
	idx := 0
	for _, r := range roots {
		members := groups[r]
		if len(members) < minClusterSize {
			continue
		}
		sort.Strings(members)
		clusters = append(clusters, Cluster{ClusterID: fmt.Sprintf("cl%d", idx), ClaimIDs: members})
		idx++
	}
	return clusters
}
