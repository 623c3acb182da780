package skilltax

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// LoadSkillsCmd: reads the skills CSV, saves skills table
var LoadSkillsCmd = &cobra.Command{
	Use:   "load-skills [csv-path]",
	Short: "Load skills from the ESCO CSV export",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := Pipeline.SkillsCSV
		if len(args) > 0 {
			path = args[0]
		}
		store, err := OpenStore(Pipeline.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer closeStore(store)

		n, err := loadSkills(cmd.Context(), store, path, Pipeline.MinWords)
		if err != nil {
			return err
		}
		zap.L().Info("loaded skills", zap.String("path", path), zap.Int("skills", n))
		return nil
	},
}

func closeStore(s *Store) {
	if err := s.Close(); err != nil {
		zap.L().Warn("failed to close database", zap.Error(err))
	}
}

func loadSkills(ctx context.Context, store *Store, path string, minWords int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open skills file: %w", err)
	}
	defer f.Close()

	skills, err := readSkillsCSV(f, minWords)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := store.ReplaceSkills(ctx, skills); err != nil {
		return 0, fmt.Errorf("failed to save skills: %w", err)
	}
	return len(skills), nil
}

// readSkillsCSV parses a header-addressed skills CSV and keeps the rows whose
// description has at least minWords whitespace-separated words. Kept rows
// are indexed contiguously from zero.
func readSkillsCSV(r io.Reader, minWords int) ([]Skill, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{"preferredLabel", "description"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var skills []Skill
	dropped := 0
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		desc := field(rec, "description")
		if len(strings.Fields(desc)) < minWords {
			dropped++
			continue
		}
		skills = append(skills, Skill{
			Index:          len(skills),
			ConceptURI:     field(rec, "conceptUri"),
			PreferredLabel: field(rec, "preferredLabel"),
			AltLabels:      field(rec, "altLabels"),
			Description:    desc,
		})
	}
	zap.L().Debug("filtered short descriptions", zap.Int("dropped", dropped), zap.Int("kept", len(skills)))
	return skills, nil
}
