package skilltax

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClosestSkills(t *testing.T) {
	ctx := context.Background()
	store := seedEmbeddedStore(t, "fake")

	closest, err := closestSkills(ctx, store, "fake", 3, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, closest, 9)
	require.Equal(t, 3, closest[0].Index)
	require.InDelta(t, 1, closest[0].Similarity, 1e-12)
	require.ElementsMatch(t, []int{4, 5}, []int{closest[1].Index, closest[2].Index})
	require.Greater(t, closest[2].Similarity, 0.99)
	require.Less(t, closest[3].Similarity, 0.01)

	data, err := similarSkillsCSV(closest[:2])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "index,preferredLabel,description,cosine_scores", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "3,bake b,bake bread daily,1.000000"))
}

func TestClosestSkillsRandomQuery(t *testing.T) {
	store := seedEmbeddedStore(t, "fake")
	closest, err := closestSkills(context.Background(), store, "fake", -1, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	for _, s := range closest[1:] {
		require.LessOrEqual(t, s.Similarity, closest[0].Similarity+1e-12)
	}
}

func TestClosestSkillsUnknownIndex(t *testing.T) {
	store := seedEmbeddedStore(t, "fake")
	_, err := closestSkills(context.Background(), store, "fake", 42, rand.New(rand.NewSource(1)))
	require.ErrorContains(t, err, "skill 42")
}
