package skilltax

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Skill is one row of the skills table.
type Skill struct {
	Index          int    `json:"index" db:"idx"`
	ConceptURI     string `json:"concept_uri" db:"concept_uri"`
	PreferredLabel string `json:"preferred_label" db:"preferred_label"`
	AltLabels      string `json:"alt_labels,omitempty" db:"alt_labels"`
	Description    string `json:"description" db:"description"`
}

// LabeledSkill is a skill with its position in the taxonomy.
type LabeledSkill struct {
	Skill
	Label
}

// labeledSkillJSON flattens a LabeledSkill. Label alone encodes as text, and
// its promoted MarshalText would otherwise replace the whole record.
type labeledSkillJSON struct {
	Skill
	ClassID    int `json:"class_id"`
	SubclassID int `json:"subclass_id"`
}

func (s LabeledSkill) MarshalJSON() ([]byte, error) {
	return json.Marshal(labeledSkillJSON{Skill: s.Skill, ClassID: s.ClassID, SubclassID: s.SubclassID})
}

func (s *LabeledSkill) UnmarshalJSON(data []byte) error {
	var v labeledSkillJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.Skill = v.Skill
	s.Label = Label{ClassID: v.ClassID, SubclassID: v.SubclassID}
	return nil
}

// Store persists skills, embeddings, labels and names in SQLite.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS skills (
	idx INTEGER PRIMARY KEY,
	concept_uri TEXT NOT NULL,
	preferred_label TEXT NOT NULL,
	alt_labels TEXT NOT NULL,
	description TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS embeddings (
	idx INTEGER NOT NULL REFERENCES skills(idx),
	model TEXT NOT NULL,
	embedding_json TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (idx, model)
);
CREATE TABLE IF NOT EXISTS labels (
	idx INTEGER PRIMARY KEY REFERENCES skills(idx),
	class_id INTEGER NOT NULL,
	subclass_id INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_labels_class ON labels(class_id, subclass_id);
CREATE TABLE IF NOT EXISTS names (
	level TEXT NOT NULL,
	group_key TEXT NOT NULL,
	name TEXT NOT NULL,
	PRIMARY KEY (level, group_key)
);
`

// OpenStore opens or creates the database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		if err := db.Close(); err != nil {
			zap.L().Warn("failed to close database", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			zap.L().Warn("failed to roll back", zap.Error(rerr))
		}
		return err
	}
	return tx.Commit()
}

// ReplaceSkills drops every stored skill, with its embeddings and labels,
// and inserts skills.
func (s *Store) ReplaceSkills(ctx context.Context, skills []Skill) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, table := range []string{"labels", "embeddings", "skills"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		stmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO skills (idx, concept_uri, preferred_label, alt_labels, description)
			VALUES (:idx, :concept_uri, :preferred_label, :alt_labels, :description)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, sk := range skills {
			if _, err := stmt.ExecContext(ctx, sk); err != nil {
				return fmt.Errorf("failed to insert skill %d: %w", sk.Index, err)
			}
		}
		return nil
	})
}

// Skills returns every skill ordered by index.
func (s *Store) Skills(ctx context.Context) ([]Skill, error) {
	var skills []Skill
	err := s.db.SelectContext(ctx, &skills, `SELECT idx, concept_uri, preferred_label, alt_labels, description FROM skills ORDER BY idx`)
	return skills, err
}

// MissingEmbeddings returns the skills without an embedding for model.
func (s *Store) MissingEmbeddings(ctx context.Context, model string) ([]Skill, error) {
	var skills []Skill
	err := s.db.SelectContext(ctx, &skills, `
		SELECT s.idx, s.concept_uri, s.preferred_label, s.alt_labels, s.description
		FROM skills s
		LEFT JOIN embeddings e ON e.idx = s.idx AND e.model = ?
		WHERE e.idx IS NULL
		ORDER BY s.idx`, model)
	return skills, err
}

// SaveEmbeddings stores vectors[i] as the embedding of skill indices[i].
func (s *Store) SaveEmbeddings(ctx context.Context, model string, indices []int, vectors [][]float64) error {
	if len(indices) != len(vectors) {
		return fmt.Errorf("%d indices for %d vectors", len(indices), len(vectors))
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for i, idx := range indices {
			data, err := json.Marshal(vectors[i])
			if err != nil {
				return fmt.Errorf("failed to marshal embedding: %w", err)
			}
			_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO embeddings (idx, model, embedding_json) VALUES (?, ?, ?)`, idx, model, string(data))
			if err != nil {
				return fmt.Errorf("failed to insert embedding %d: %w", idx, err)
			}
		}
		return nil
	})
}

// Items returns the skills embedded with model, ordered by index.
func (s *Store) Items(ctx context.Context, model string) ([]Item, error) {
	var rows []struct {
		Item
		EmbeddingJSON string `db:"embedding_json"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT s.idx, s.description, e.embedding_json
		FROM skills s
		JOIN embeddings e ON e.idx = s.idx AND e.model = ?
		ORDER BY s.idx`, model)
	if err != nil {
		return nil, err
	}
	items := make([]Item, len(rows))
	for i, r := range rows {
		items[i] = r.Item
		if err := json.Unmarshal([]byte(r.EmbeddingJSON), &items[i].Embedding); err != nil {
			return nil, fmt.Errorf("failed to decode embedding of skill %d: %w", r.Index, err)
		}
	}
	return items, nil
}

// SaveLabels replaces the taxonomy labels. labels[i] belongs to skill indices[i].
func (s *Store) SaveLabels(ctx context.Context, indices []int, labels []Label) error {
	if len(indices) != len(labels) {
		return fmt.Errorf("%d indices for %d labels", len(indices), len(labels))
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM labels`); err != nil {
			return err
		}
		for i, idx := range indices {
			_, err := tx.ExecContext(ctx, `INSERT INTO labels (idx, class_id, subclass_id) VALUES (?, ?, ?)`,
				idx, labels[i].ClassID, labels[i].SubclassID)
			if err != nil {
				return fmt.Errorf("failed to insert label of skill %d: %w", idx, err)
			}
		}
		return nil
	})
}

// LabeledSkills returns every labelled skill ordered by label, then index.
func (s *Store) LabeledSkills(ctx context.Context) ([]LabeledSkill, error) {
	var skills []LabeledSkill
	err := s.db.SelectContext(ctx, &skills, `
		SELECT s.idx, s.concept_uri, s.preferred_label, s.alt_labels, s.description, l.class_id, l.subclass_id
		FROM skills s
		JOIN labels l ON l.idx = s.idx
		ORDER BY l.class_id, l.subclass_id, s.idx`)
	return skills, err
}

// SkillsInClasses returns the labelled skills of the given classes.
func (s *Store) SkillsInClasses(ctx context.Context, classes []int) ([]LabeledSkill, error) {
	if len(classes) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT s.idx, s.concept_uri, s.preferred_label, s.alt_labels, s.description, l.class_id, l.subclass_id
		FROM skills s
		JOIN labels l ON l.idx = s.idx
		WHERE l.class_id IN (?)
		ORDER BY l.class_id, l.subclass_id, s.idx`, classes)
	if err != nil {
		return nil, err
	}
	var skills []LabeledSkill
	err = s.db.SelectContext(ctx, &skills, s.db.Rebind(query), args...)
	return skills, err
}

// SaveNames upserts the names of one taxonomy level, keyed by group.
func (s *Store) SaveNames(ctx context.Context, level string, names map[string]string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for key, name := range names {
			_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO names (level, group_key, name) VALUES (?, ?, ?)`, level, key, name)
			if err != nil {
				return fmt.Errorf("failed to save name of %s %s: %w", level, key, err)
			}
		}
		return nil
	})
}

// Names returns the names of one taxonomy level keyed by group.
func (s *Store) Names(ctx context.Context, level string) (map[string]string, error) {
	var rows []struct {
		Key  string `db:"group_key"`
		Name string `db:"name"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT group_key, name FROM names WHERE level = ?`, level); err != nil {
		return nil, err
	}
	names := make(map[string]string, len(rows))
	for _, r := range rows {
		names[r.Key] = r.Name
	}
	return names, nil
}
