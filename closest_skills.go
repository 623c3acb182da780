package skilltax

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const closestSkillsCount = 10

// SimilarSkill is a skill and its cosine similarity to a query skill.
type SimilarSkill struct {
	Skill
	Similarity float64 `json:"cosine_score"`
}

var ClosestSkillsCmd = &cobra.Command{
	Use:   "closest-skills [skill-index]",
	Short: "List the skills closest to one skill in the embedding",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, _ := cmd.Flags().GetInt64("seed")

		store, err := OpenStore(Pipeline.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer closeStore(store)

		query := -1
		if len(args) > 0 {
			if query, err = strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("invalid skill index %q", args[0])
			}
		}
		closest, err := closestSkills(cmd.Context(), store, Pipeline.Embedding.Model, query, rand.New(rand.NewSource(seed)))
		if err != nil {
			return err
		}
		name := "closest_skills_to_" + strings.ReplaceAll(closest[0].PreferredLabel, " ", "_") + ".csv"
		data, err := similarSkillsCSV(closest)
		if err != nil {
			return err
		}
		if err := writeOutput(Pipeline.OutputDir, closestSkillsDirPath+"/"+name, data); err != nil {
			return err
		}
		zap.L().Info("closest skills saved", zap.String("skill", closest[0].PreferredLabel), zap.String("file", name))
		return nil
	},
}

func init() {
	ClosestSkillsCmd.Flags().Int64("seed", 1, "Seed for picking a random skill when no index is given")
}

// closestSkills ranks every embedded skill by cosine similarity to the skill
// at index query, or to a random skill when query is negative. The query
// skill itself comes first.
func closestSkills(ctx context.Context, store *Store, model string, query int, rng *rand.Rand) ([]SimilarSkill, error) {
	items, err := store.Items(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no embeddings found for model %s, run embed-skills first", model)
	}
	skills, err := store.Skills(ctx)
	if err != nil {
		return nil, err
	}
	byIndex := make(map[int]Skill, len(skills))
	for _, sk := range skills {
		byIndex[sk.Index] = sk
	}

	raw, err := NewEmbeddingMatrix(items)
	if err != nil {
		return nil, err
	}
	m, err := NormalizeRows(raw)
	if err != nil {
		return nil, err
	}

	row := -1
	if query < 0 {
		row = rng.Intn(len(items))
	} else {
		for i, it := range items {
			if it.Index == query {
				row = i
				break
			}
		}
		if row < 0 {
			return nil, fmt.Errorf("skill %d has no %s embedding", query, model)
		}
	}

	n, _ := m.Dims()
	sims := make([]float64, n)
	mat.NewVecDense(n, sims).MulVec(m, m.RowView(row))

	ranked := make([]SimilarSkill, n)
	for i, it := range items {
		ranked[i] = SimilarSkill{Skill: byIndex[it.Index], Similarity: sims[i]}
	}
	slices.SortStableFunc(ranked, func(a, b SimilarSkill) int {
		switch {
		case a.Index == items[row].Index:
			return -1
		case b.Index == items[row].Index:
			return 1
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		}
		return 0
	})
	return ranked[:min(closestSkillsCount, len(ranked))], nil
}

func similarSkillsCSV(skills []SimilarSkill) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"index", "preferredLabel", "description", "cosine_scores"}); err != nil {
		return nil, err
	}
	for _, s := range skills {
		rec := []string{strconv.Itoa(s.Index), s.PreferredLabel, s.Description, strconv.FormatFloat(s.Similarity, 'f', 6, 64)}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
