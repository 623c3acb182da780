package skilltax

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddLabels(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)
	store := seedEmbeddedStore(t, s.Embedding.Model)
	_, err := clusterSkills(ctx, store, s)
	require.NoError(t, err)
	require.NoError(t, store.SaveNames(ctx, LevelClass, map[string]string{"0": "Programming", "1": "Baking"}))
	require.NoError(t, store.SaveNames(ctx, LevelSubclass, map[string]string{"1.0": "Bread and cakes"}))

	named, err := addLabels(ctx, store, s.OutputDir)
	require.NoError(t, err)
	require.Len(t, named, 9)
	require.Equal(t, "bake bread daily", named[3].Description)
	require.Equal(t, 1, named[3].ClassID)
	require.Equal(t, "Baking", named[3].ClassName)
	require.Equal(t, "Bread and cakes", named[3].SubclassName)
	require.Equal(t, "Programming", named[0].ClassName)
	require.Equal(t, unnamedGroup, named[0].SubclassName)
	require.Equal(t, unnamedGroup, named[8].ClassName)

	raw, err := os.ReadFile(filepath.Join(s.OutputDir, skillsAfterLabelsPath))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"class_lbl": "Baking"`)
	require.Contains(t, string(raw), `"subclass_lbl": "Bread and cakes"`)
	require.Contains(t, string(raw), `"description": "bake bread daily"`)

	var written []NamedSkill
	require.NoError(t, readJSON(s.OutputDir, skillsAfterLabelsPath, &written))
	require.Equal(t, named, written)
}

func TestAddLabelsRequiresLabels(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.ReplaceSkills(context.Background(), testSkills()))
	_, err := addLabels(context.Background(), store, t.TempDir())
	require.ErrorContains(t, err, "run cluster-skills first")
}
