package skilltax

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NamedSkill is a labelled skill with the names of its class and subclass.
type NamedSkill struct {
	Skill
	ClassID      int    `json:"class_id"`
	SubclassID   int    `json:"subclass_id"`
	ClassName    string `json:"class_lbl"`
	SubclassName string `json:"subclass_lbl"`
}

var AddLabelsCmd = &cobra.Command{
	Use:   "add-labels",
	Short: "Attach class and subclass names to every labelled skill",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenStore(Pipeline.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer closeStore(store)

		named, err := addLabels(cmd.Context(), store, Pipeline.OutputDir)
		if err != nil {
			return fmt.Errorf("failed to add labels: %w", err)
		}
		zap.L().Info("named skills saved", zap.Int("skills", len(named)), zap.String("file", skillsAfterLabelsPath))
		return nil
	},
}

// addLabels joins the stored class and subclass names onto the labelled
// skills and writes them in taxonomy order. Groups without a name read
// "unnamed".
func addLabels(ctx context.Context, store *Store, outDir string) ([]NamedSkill, error) {
	labeled, err := store.LabeledSkills(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load labelled skills: %w", err)
	}
	if len(labeled) == 0 {
		return nil, fmt.Errorf("no labelled skills found, run cluster-skills first")
	}
	classNames, err := store.Names(ctx, LevelClass)
	if err != nil {
		return nil, err
	}
	subclassNames, err := store.Names(ctx, LevelSubclass)
	if err != nil {
		return nil, err
	}

	named := make([]NamedSkill, len(labeled))
	unnamed := 0
	for i, sk := range labeled {
		className, subName := groupNames(sk.Label, classNames, subclassNames)
		if className == unnamedGroup || subName == unnamedGroup {
			unnamed++
		}
		named[i] = NamedSkill{
			Skill:        sk.Skill,
			ClassID:      sk.ClassID,
			SubclassID:   sk.SubclassID,
			ClassName:    className,
			SubclassName: subName,
		}
	}
	if unnamed > 0 {
		zap.L().Warn("some skills are in unnamed groups, run name-clusters to name them", zap.Int("skills", unnamed))
	}
	if err := writeJSON(outDir, skillsAfterLabelsPath, named); err != nil {
		return nil, err
	}
	return named, nil
}
