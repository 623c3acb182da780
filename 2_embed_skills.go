package skilltax

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var EmbedSkillsCmd = &cobra.Command{
	Use:   "embed-skills",
	Short: "Generate embeddings for all skill descriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenStore(Pipeline.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer closeStore(store)

		embedder, err := NewEmbedder(cmd.Context(), Pipeline.Embedding)
		if err != nil {
			return err
		}
		n, err := embedSkills(cmd.Context(), store, embedder, Pipeline.Embedding.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to embed skills: %w", err)
		}
		zap.L().Info("skill embedding complete", zap.Int("embedded", n), zap.String("model", embedder.ModelName()))
		return nil
	},
}

// embedSkills embeds the descriptions that have no vector for the
// embedder's model yet, batchSize at a time. Each batch is stored before
// the next one is requested so an interrupted run can resume.
func embedSkills(ctx context.Context, store *Store, embedder Embedder, batchSize int) (int, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batch size must be positive: %w", ErrConfiguration)
	}
	model := embedder.ModelName()
	missing, err := store.MissingEmbeddings(ctx, model)
	if err != nil {
		return 0, fmt.Errorf("failed to list skills without embeddings: %w", err)
	}
	if len(missing) == 0 {
		zap.L().Info("all skills already embedded", zap.String("model", model))
		return 0, nil
	}

	done := 0
	for start := 0; start < len(missing); start += batchSize {
		end := min(start+batchSize, len(missing))
		batch := missing[start:end]

		texts := make([]string, len(batch))
		indices := make([]int, len(batch))
		for i, sk := range batch {
			texts[i] = sk.Description
			indices[i] = sk.Index
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return done, fmt.Errorf("batch starting at skill %d: %w", indices[0], err)
		}
		if err := store.SaveEmbeddings(ctx, model, indices, vectors); err != nil {
			return done, err
		}
		done += len(batch)
		zap.L().Info("embedded batch", zap.Int("done", done), zap.Int("total", len(missing)))
	}
	return done, nil
}
