package skilltax

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ClusterReport summarises one clustering run.
type ClusterReport struct {
	Model      string  `json:"model"`
	Items      int     `json:"items"`
	Classes    int     `json:"classes"`
	Subclasses []int   `json:"subclasses_per_class"`
	ClassSizes []int   `json:"class_sizes"`
	Quality    Quality `json:"quality"`
	Assessment string  `json:"assessment"`
	Duration   string  `json:"duration"`
}

var ClusterSkillsCmd = &cobra.Command{
	Use:   "cluster-skills",
	Short: "Cluster skill embeddings into classes and subclasses",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenStore(Pipeline.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer closeStore(store)

		report, err := clusterSkills(cmd.Context(), store, Pipeline)
		if err != nil {
			return fmt.Errorf("failed to cluster skills: %w", err)
		}
		zap.L().Info("skill clustering complete",
			zap.Int("classes", report.Classes),
			zap.Float64("silhouette", report.Quality.SilhouetteScore),
			zap.Float64("davies_bouldin", report.Quality.DaviesBouldin),
			zap.Float64("calinski_harabasz", report.Quality.CalinskiHarabasz),
			zap.String("assessment", report.Assessment))
		return nil
	},
}

// clusterSkills builds the taxonomy over every embedded skill, stores the
// labels and writes the labelled skills and a run report to the output
// directory.
func clusterSkills(ctx context.Context, store *Store, s Settings) (*ClusterReport, error) {
	runtime, err := s.Clustering.Runtime()
	if err != nil {
		return nil, err
	}
	if runtime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runtime)
		defer cancel()
	}

	model := s.Embedding.Model
	skills, err := store.Skills(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}
	items, err := store.Items(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no embeddings found for model %s, run embed-skills first", model)
	}
	if len(items) != len(skills) {
		return nil, fmt.Errorf("%d of %d skills have no %s embedding, run embed-skills first", len(skills)-len(items), len(skills), model)
	}
	zap.L().Info("loaded embeddings for clustering", zap.Int("items", len(items)), zap.String("model", model))

	start := time.Now()
	tax, err := BuildTaxonomy(ctx, items, s.Clustering.ClusterConfig, s.Clustering.Thresholds())
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	indices := make([]int, len(items))
	labeled := make([]LabeledSkill, len(items))
	for i, it := range items {
		if skills[i].Index != it.Index {
			return nil, fmt.Errorf("skill %d has no embedding", skills[i].Index)
		}
		indices[i] = it.Index
		labeled[i] = LabeledSkill{Skill: skills[i], Label: tax.Labels[i]}
	}
	if err := store.SaveLabels(ctx, indices, tax.Labels); err != nil {
		return nil, fmt.Errorf("failed to save labels: %w", err)
	}

	report := &ClusterReport{
		Model:      model,
		Items:      len(items),
		Classes:    tax.Classes.K,
		Subclasses: tax.Subclasses,
		ClassSizes: tax.Classes.Sizes(),
		Quality:    tax.Quality,
		Assessment: tax.Quality.Assessment(len(items)),
		Duration:   elapsed.Round(time.Millisecond).String(),
	}
	if err := writeJSON(s.OutputDir, skillsAfterIDsPath, labeled); err != nil {
		return nil, err
	}
	if err := writeJSON(s.OutputDir, clusterReportPath, report); err != nil {
		return nil, err
	}
	return report, nil
}
