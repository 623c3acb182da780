package skilltax

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Output locations, relative to Settings.OutputDir.
const (
	skillsAfterIDsPath    = "skills/skills_after_ids.json"
	skillsAfterLabelsPath = "skills/skills_after_labels.json"
	clusterReportPath     = "skills/cluster_report.json"
	classWordsPath        = "most_informative_words/class.json"
	subclassWordsPath     = "most_informative_words/subclass.json"
	namedClassesPath      = "named_classes/named_classes.json"
	namedSubclassesPath   = "named_classes/named_subclasses.json"
	treeMarkdownPath      = "tree/tree.md"
	treeHTMLPath          = "tree/tree.html"
	closestSkillsDirPath  = "closest_skills"
)

// writeJSON writes v to dir/name with a 4-space indent, creating parent
// directories. Plain map keys come out sorted as strings; use orderedTerms
// for taxonomy order.
func writeJSON(dir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return writeOutput(dir, name, data)
}

func writeOutput(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readJSON(dir, name string, v any) error {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// orderedTerms lays out a TopTerms result in group order, so class 2 is
// written before class 10.
func orderedTerms[K comparable](terms map[K][]TermScore, compare func(a, b K) int) *orderedmap.OrderedMap[K, []TermScore] {
	om := orderedmap.New[K, []TermScore](len(terms))
	for _, k := range SortedGroups(terms, compare) {
		om.Set(k, terms[k])
	}
	return om
}
