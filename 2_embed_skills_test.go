package skilltax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbedSkillsResumes(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.ReplaceSkills(ctx, testSkills()))
	require.NoError(t, store.SaveEmbeddings(ctx, "fake", []int{1}, [][]float64{{0, 0}}))

	fake := &fakeEmbedder{}
	n, err := embedSkills(ctx, store, fake, 1)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, [][]string{{"write programs in python"}, {"write programs in java"}}, fake.calls)

	items, err := store.Items(ctx, "fake")
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, []float64{24, 1}, items[0].Embedding)
	require.Equal(t, []float64{0, 0}, items[1].Embedding)

	n, err = embedSkills(ctx, store, fake, 10)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, fake.calls, 2)
}

func TestEmbedSkillsRejectsBatchSize(t *testing.T) {
	_, err := embedSkills(context.Background(), openTestStore(t), &fakeEmbedder{}, 0)
	require.ErrorIs(t, err, ErrConfiguration)
}
