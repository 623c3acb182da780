package skilltax

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Taxonomy levels that can be named.
const (
	LevelClass    = "class"
	LevelSubclass = "subclass"
)

// NameSuggestion is the structured reply of the naming assistant.
type NameSuggestion struct {
	Name      string `json:"name" jsonschema:"description=Short human readable name for the group of skills, at most five words"`
	Rationale string `json:"rationale" jsonschema:"description=One sentence explaining the name"`
}

// Suggester proposes a name for a group from its most informative terms.
type Suggester func(ctx context.Context, level, key string, terms []TermScore) (string, error)

var NameClustersCmd = &cobra.Command{
	Use:   "name-clusters",
	Short: "Name classes and subclasses interactively from their informative words",
	RunE: func(cmd *cobra.Command, args []string) error {
		suggest, _ := cmd.Flags().GetBool("suggest")
		level, _ := cmd.Flags().GetString("level")

		var levels []string
		switch level {
		case "all":
			levels = []string{LevelClass, LevelSubclass}
		case LevelClass, LevelSubclass:
			levels = []string{level}
		default:
			return fmt.Errorf("unknown level %q, want class, subclass or all", level)
		}

		var suggester Suggester
		if suggest {
			suggester = suggestName
		}

		store, err := OpenStore(Pipeline.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer closeStore(store)

		in := bufio.NewReader(cmd.InOrStdin())
		for _, lvl := range levels {
			if err := nameLevel(cmd.Context(), store, Pipeline.OutputDir, lvl, in, cmd.OutOrStdout(), suggester); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	NameClustersCmd.Flags().Bool("suggest", false, "Suggest names with Azure OpenAI")
	NameClustersCmd.Flags().String("level", "all", "Level to name: class, subclass or all")
}

func levelPaths(level string) (words, named string) {
	if level == LevelClass {
		return classWordsPath, namedClassesPath
	}
	return subclassWordsPath, namedSubclassesPath
}

// nameLevel prompts for a name for every group of one level and saves the
// result to the store and the named classes directory. Existing names are
// offered as defaults.
func nameLevel(ctx context.Context, store *Store, outDir, level string, in *bufio.Reader, out io.Writer, suggest Suggester) error {
	wordsPath, namedPath := levelPaths(level)
	var words map[string][]TermScore
	if err := readJSON(outDir, wordsPath, &words); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w, run informative-words first", err)
		}
		return err
	}
	existing, err := store.Names(ctx, level)
	if err != nil {
		return fmt.Errorf("failed to load names: %w", err)
	}

	names, err := nameGroups(ctx, in, out, level, words, existing, suggest)
	if err != nil {
		return err
	}
	if err := store.SaveNames(ctx, level, names); err != nil {
		return err
	}
	all, err := store.Names(ctx, level)
	if err != nil {
		return err
	}
	if err := writeJSON(outDir, namedPath, all); err != nil {
		return err
	}
	zap.L().Info("saved names", zap.String("level", level), zap.Int("named", len(names)))
	return nil
}

// nameGroups prints the terms of each group in taxonomy order and reads one
// name per line. An empty line accepts the default, which is the suggestion
// if there is one and the existing name otherwise. Groups left without a
// name are not returned. End of input stops early without error.
func nameGroups(ctx context.Context, in *bufio.Reader, out io.Writer, level string, words map[string][]TermScore, existing map[string]string, suggest Suggester) (map[string]string, error) {
	names := make(map[string]string)
	for _, key := range sortedGroupKeys(words) {
		terms := words[key]
		fmt.Fprintf(out, "\n%s %s:\n", level, key)
		for _, t := range terms {
			fmt.Fprintf(out, "  %-30s %.4f\n", t.Term, t.Score)
		}

		def := existing[key]
		if suggest != nil {
			s, err := suggest(ctx, level, key, terms)
			if err != nil {
				zap.L().Warn("name suggestion failed", zap.String("group", key), zap.Error(err))
			} else if s != "" {
				def = s
			}
		}

		fmt.Fprintf(out, "Using the most informative words for %s %s above,\n", level, key)
		if def != "" {
			fmt.Fprintf(out, "enter name for %s %s [%s]: ", level, key, def)
		} else {
			fmt.Fprintf(out, "enter name for %s %s: ", level, key)
		}

		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		name := strings.TrimSpace(line)
		if name == "" {
			name = def
		}
		if name != "" {
			names[key] = name
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	return names, nil
}

// sortedGroupKeys orders "c" and "c.s" keys numerically.
func sortedGroupKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		la, errA := parseGroupKey(a)
		lb, errB := parseGroupKey(b)
		if errA != nil || errB != nil {
			return strings.Compare(a, b)
		}
		return la.Compare(lb)
	})
	return keys
}

func parseGroupKey(key string) (Label, error) {
	if !strings.Contains(key, ".") {
		c, err := strconv.Atoi(key)
		return Label{ClassID: c}, err
	}
	var l Label
	err := l.UnmarshalText([]byte(key))
	return l, err
}

func suggestName(ctx context.Context, level, key string, terms []TermScore) (string, error) {
	words := make([]string, len(terms))
	for i, t := range terms {
		words[i] = t.Term
	}
	system := "You name clusters of occupational skills for a skills taxonomy. " +
		"Given the most informative words of a cluster, reply with a short, specific name."
	user := fmt.Sprintf("Most informative words of %s %s, most informative first:\n%s", level, key, strings.Join(words, ", "))

	var s NameSuggestion
	if err := structuredChat(ctx, "cluster_name", system, user, &s); err != nil {
		return "", err
	}
	return strings.TrimSpace(s.Name), nil
}

const unnamedGroup = "unnamed"

// groupNames resolves names for a label from class and subclass name maps.
func groupNames(l Label, classNames, subclassNames map[string]string) (string, string) {
	return cmp.Or(classNames[strconv.Itoa(l.ClassID)], unnamedGroup), cmp.Or(subclassNames[l.String()], unnamedGroup)
}
