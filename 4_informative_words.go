package skilltax

import (
	"cmp"
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var InformativeWordsCmd = &cobra.Command{
	Use:   "informative-words",
	Short: "Find the most informative words of every class and subclass",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenStore(Pipeline.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer closeStore(store)

		classes, subclasses, err := informativeWords(cmd.Context(), store, Pipeline)
		if err != nil {
			return fmt.Errorf("failed to extract informative words: %w", err)
		}
		zap.L().Info("informative words saved", zap.Int("classes", len(classes)), zap.Int("subclasses", len(subclasses)))
		return nil
	},
}

// informativeWords runs class-TF-IDF over the labelled skill descriptions
// grouped once by class and once by subclass, and writes both results.
// The IDF numerator is the number of labelled skills at both levels.
func informativeWords(ctx context.Context, store *Store, s Settings) (map[int][]TermScore, map[Label][]TermScore, error) {
	labeled, err := store.LabeledSkills(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load labelled skills: %w", err)
	}
	if len(labeled) == 0 {
		return nil, nil, fmt.Errorf("no labelled skills found, run cluster-skills first")
	}

	texts := make([]string, len(labeled))
	classIDs := make([]int, len(labeled))
	labels := make([]Label, len(labeled))
	for i, sk := range labeled {
		texts[i] = sk.Description
		classIDs[i] = sk.ClassID
		labels[i] = sk.Label
	}

	cfg := s.Naming
	cfg.TotalItems = len(labeled)

	classes, err := TopTerms(texts, classIDs, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("class level: %w", err)
	}
	subclasses, err := TopTerms(texts, labels, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("subclass level: %w", err)
	}

	for _, c := range SortedGroups(classes, cmp.Compare[int]) {
		zap.L().Debug("class terms", zap.Int("class", c), zap.Any("terms", classes[c]))
	}

	if err := writeJSON(s.OutputDir, classWordsPath, orderedTerms(classes, cmp.Compare[int])); err != nil {
		return nil, nil, err
	}
	if err := writeJSON(s.OutputDir, subclassWordsPath, orderedTerms(subclasses, Label.Compare)); err != nil {
		return nil, nil, err
	}
	return classes, subclasses, nil
}
