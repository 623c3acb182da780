package skilltax

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildTree(t *testing.T) {
	skills := []LabeledSkill{
		{Skill: Skill{PreferredLabel: "use python"}, Label: Label{0, 0}},
		{Skill: Skill{PreferredLabel: "use java"}, Label: Label{0, 0}},
		{Skill: Skill{PreferredLabel: "review code"}, Label: Label{0, 1}},
		{Skill: Skill{PreferredLabel: "bake bread"}, Label: Label{1, 0}},
	}
	classNames := map[string]string{"0": "Programming", "1": "Baking"}
	subNames := map[string]string{"0.0": "Languages"}

	want := `# Skills taxonomy

- skills_taxonomy(4)
  - 0: Programming(3)
    - 0.0: Languages(2)
    - 0.1: unnamed(1)
  - 1: Baking(1)
    - 1.0: unnamed(1)
`
	require.Equal(t, want, buildTree(skills, classNames, subNames, false))

	withSkills := buildTree(skills, classNames, subNames, true)
	require.Contains(t, withSkills, "    - 0.0: Languages(2)\n      - use python\n      - use java\n")
}

func TestRenderTreeHTML(t *testing.T) {
	page, err := renderTreeHTML("# Skills taxonomy\n\n- skills_taxonomy(1)\n  - 0: A & B(1)\n", time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Contains(t, page, "<title>Skills taxonomy</title>")
	require.Contains(t, page, "Generated 17 October 2026")
	require.Contains(t, page, `<h1 id="skills-taxonomy">Skills taxonomy</h1>`)
	require.Contains(t, page, "<li>0: A &amp; B(1)</li>")
}

func TestGenerateTree(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)
	store := seedEmbeddedStore(t, s.Embedding.Model)
	_, err := clusterSkills(ctx, store, s)
	require.NoError(t, err)
	require.NoError(t, store.SaveNames(ctx, LevelClass, map[string]string{"1": "Baking"}))

	require.NoError(t, generateTree(ctx, store, s.OutputDir, []int{1}, false))
	md, err := os.ReadFile(filepath.Join(s.OutputDir, treeMarkdownPath))
	require.NoError(t, err)
	require.Contains(t, string(md), "- skills_taxonomy(3)\n  - 1: Baking(3)\n    - 1.0: unnamed(3)\n")
	require.False(t, strings.Contains(string(md), "  - 0:"))

	_, err = os.Stat(filepath.Join(s.OutputDir, treeHTMLPath))
	require.NoError(t, err)
}
