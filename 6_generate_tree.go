package skilltax

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

//go:embed templates/tree.html
var treeTemplate string

const treeTitle = "Skills taxonomy"

var GenerateTreeCmd = &cobra.Command{
	Use:   "generate-tree",
	Short: "Generate the taxonomy tree as markdown and HTML",
	RunE: func(cmd *cobra.Command, args []string) error {
		withSkills, _ := cmd.Flags().GetBool("skills")
		classes, _ := cmd.Flags().GetIntSlice("class")

		store, err := OpenStore(Pipeline.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer closeStore(store)

		if err := generateTree(cmd.Context(), store, Pipeline.OutputDir, classes, withSkills); err != nil {
			return fmt.Errorf("failed to generate tree: %w", err)
		}
		zap.L().Info("taxonomy tree generated", zap.String("markdown", treeMarkdownPath), zap.String("html", treeHTMLPath))
		return nil
	},
}

func init() {
	GenerateTreeCmd.Flags().Bool("skills", false, "List the skills under each subclass")
	GenerateTreeCmd.Flags().IntSlice("class", nil, "Only include these classes")
}

func generateTree(ctx context.Context, store *Store, outDir string, classes []int, withSkills bool) error {
	var skills []LabeledSkill
	var err error
	if len(classes) > 0 {
		skills, err = store.SkillsInClasses(ctx, classes)
	} else {
		skills, err = store.LabeledSkills(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to load labelled skills: %w", err)
	}
	if len(skills) == 0 {
		return fmt.Errorf("no labelled skills found, run cluster-skills first")
	}
	classNames, err := store.Names(ctx, LevelClass)
	if err != nil {
		return err
	}
	subclassNames, err := store.Names(ctx, LevelSubclass)
	if err != nil {
		return err
	}

	md := buildTree(skills, classNames, subclassNames, withSkills)
	if err := writeOutput(outDir, treeMarkdownPath, []byte(md)); err != nil {
		return err
	}
	page, err := renderTreeHTML(md, time.Now())
	if err != nil {
		return err
	}
	return writeOutput(outDir, treeHTMLPath, []byte(page))
}

// buildTree renders skills, ordered by label, as a nested markdown list:
// the root with the total count, then "c: name(count)" per class and
// "c.s: name(count)" per subclass.
func buildTree(skills []LabeledSkill, classNames, subclassNames map[string]string, withSkills bool) string {
	classCounts := make(map[int]int)
	subCounts := make(map[Label]int)
	for _, sk := range skills {
		classCounts[sk.ClassID]++
		subCounts[sk.Label]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", treeTitle)
	fmt.Fprintf(&b, "- skills_taxonomy(%d)\n", len(skills))
	prev := Label{ClassID: -1, SubclassID: -1}
	for _, sk := range skills {
		className, subName := groupNames(sk.Label, classNames, subclassNames)
		if sk.ClassID != prev.ClassID {
			fmt.Fprintf(&b, "  - %s: %s(%d)\n", strconv.Itoa(sk.ClassID), className, classCounts[sk.ClassID])
		}
		if sk.Label != prev {
			fmt.Fprintf(&b, "    - %s: %s(%d)\n", sk.Label, subName, subCounts[sk.Label])
		}
		if withSkills {
			fmt.Fprintf(&b, "      - %s\n", sk.PreferredLabel)
		}
		prev = sk.Label
	}
	return b.String()
}

// renderTreeHTML converts the tree markdown into a standalone page.
func renderTreeHTML(markdown string, now time.Time) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	tmpl, err := template.New("tree").Parse(treeTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML template: %w", err)
	}
	data := struct {
		Title string
		Date  string
		Body  template.HTML
	}{
		Title: treeTitle,
		Date:  now.Format("2 January 2006"),
		Body:  template.HTML(buf.String()),
	}
	var result bytes.Buffer
	if err := tmpl.Execute(&result, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return result.String(), nil
}
