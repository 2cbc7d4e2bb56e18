package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterClaims_GroupsSimilarEmbeddings(t *testing.T) {
	embeddings := map[string][]float32{
		"clm0": {1, 0},
		"clm1": {0.99, 0.01},
		"clm2": {0, 1},
	}
	clusters := ClusterClaims([]string{"clm0", "clm1", "clm2"}, embeddings, 0.9, 2)
	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []string{"clm0", "clm1"}, clusters[0].ClaimIDs)
}

func TestClusterClaims_DropsClustersBelowMinSize(t *testing.T) {
	embeddings := map[string][]float32{
		"clm0": {1, 0},
		"clm1": {0, 1},
	}
	clusters := ClusterClaims([]string{"clm0", "clm1"}, embeddings, 0.9, 2)
	assert.Empty(t, clusters)
}

func TestClusterClaims_TransitiveMerge(t *testing.T) {
	// clm0~clm1 and clm1~clm2 individually exceed threshold even though
	// clm0 and clm2 alone might not -- single-link clustering merges all
	// three transitively through clm1.
	embeddings := map[string][]float32{
		"clm0": {1, 0, 0},
		"clm1": {0.9, 0.436, 0},
		"clm2": {0.6, 0.8, 0},
	}
	clusters := ClusterClaims([]string{"clm0", "clm1", "clm2"}, embeddings, 0.85, 2)
	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []string{"clm0", "clm1", "clm2"}, clusters[0].ClaimIDs)
}

func TestClusterClaims_EmptyInputReturnsNoClusters(t *testing.T) {
	assert.Empty(t, ClusterClaims(nil, map[string][]float32{}, 0.5, 2))
}
