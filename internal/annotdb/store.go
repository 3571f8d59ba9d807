// Package annotdb persists annotation models into a SQLite corpus database,
// one row per document plus its entities and relations. It backs corpus-wide
// label statistics and lets annotation sets from many documents be queried
// in one place.
//
// The pure Go SQLite driver (modernc.org/sqlite) is used; no cgo required.
package annotdb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/medtext/annotate/core/annotation"
	"github.com/medtext/annotate/core/errors"
	"github.com/medtext/annotate/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id                 TEXT PRIMARY KEY,
	source_fingerprint TEXT NOT NULL DEFAULT '',
	entity_count       INTEGER NOT NULL,
	relation_count     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	doc_id       TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	key          INTEGER NOT NULL,
	label        TEXT NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	text         TEXT NOT NULL,
	PRIMARY KEY (doc_id, key)
);

CREATE TABLE IF NOT EXISTS relations (
	doc_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	key    INTEGER NOT NULL,
	label  TEXT NOT NULL,
	arg1   INTEGER NOT NULL,
	arg2   INTEGER NOT NULL,
	PRIMARY KEY (doc_id, key)
);

CREATE INDEX IF NOT EXISTS idx_entities_label ON entities(label);
`

// Store is a SQLite-backed corpus of annotation models.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the corpus database at path and ensures
// the schema exists. Use ":memory:" for an in-memory corpus.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewIO("initialize", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDocument stores a model under a document ID, replacing any previous
// annotations for that document. The write is transactional: either the
// whole model lands or nothing does.
func (s *Store) SaveDocument(docID string, a *annotation.Annotations) error {
	if docID == "" {
		return errors.NewValidation("doc_id", "must not be empty")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.NewIO("begin transaction", docID, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM entities WHERE doc_id = ?`,
		`DELETE FROM relations WHERE doc_id = ?`,
		`DELETE FROM documents WHERE id = ?`,
	} {
		if _, err := tx.Exec(stmt, docID); err != nil {
			return errors.NewIO("clear document", docID, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO documents (id, source_fingerprint, entity_count, relation_count) VALUES (?, ?, ?, ?)`,
		docID, a.SourceFingerprint(), a.Len(), a.RelationCount(),
	); err != nil {
		return errors.NewIO("insert document", docID, err)
	}

	for _, key := range a.EntityKeys() {
		e, _ := a.EntityByKey(key)
		if _, err := tx.Exec(
			`INSERT INTO entities (doc_id, key, label, start_offset, end_offset, text) VALUES (?, ?, ?, ?, ?, ?)`,
			docID, key, e.Label, e.Start, e.End, e.Text,
		); err != nil {
			return errors.NewIO("insert entity", fmt.Sprintf("%s/T%d", docID, key), err)
		}
	}

	for _, r := range a.Relations() {
		if _, err := tx.Exec(
			`INSERT INTO relations (doc_id, key, label, arg1, arg2) VALUES (?, ?, ?, ?, ?)`,
			docID, r.Key, r.Label, r.Arg1, r.Arg2,
		); err != nil {
			return errors.NewIO("insert relation", fmt.Sprintf("%s/R%d", docID, r.Key), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewIO("commit", docID, err)
	}

	logging.StoreEvent("save", docID, "entities", a.Len(), "relations", a.RelationCount())
	return nil
}

// LoadDocument rebuilds the model stored under a document ID. The rebuilt
// model carries no source text (the corpus stores annotations only), so it
// is constructed permissive.
func (s *Store) LoadDocument(docID string) (*annotation.Annotations, error) {
	var entityCount int
	err := s.db.QueryRow(`SELECT entity_count FROM documents WHERE id = ?`, docID).Scan(&entityCount)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("document", docID)
	}
	if err != nil {
		return nil, errors.NewIO("query document", docID, err)
	}

	a := annotation.NewModel(annotation.Permissive())

	rows, err := s.db.Query(
		`SELECT key, label, start_offset, end_offset, text FROM entities WHERE doc_id = ? ORDER BY key`, docID)
	if err != nil {
		return nil, errors.NewIO("query entities", docID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, start, end int
		var label, text string
		if err := rows.Scan(&key, &label, &start, &end, &text); err != nil {
			return nil, errors.NewIO("scan entity", docID, err)
		}
		if err := a.PutEntity(key, annotation.Entity{Label: label, Start: start, End: end, Text: text}); err != nil {
			return nil, errors.Wrapf(err, "document %s", docID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("iterate entities", docID, err)
	}

	relRows, err := s.db.Query(
		`SELECT key, label, arg1, arg2 FROM relations WHERE doc_id = ? ORDER BY key`, docID)
	if err != nil {
		return nil, errors.NewIO("query relations", docID, err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var key, arg1, arg2 int
		var label string
		if err := relRows.Scan(&key, &label, &arg1, &arg2); err != nil {
			return nil, errors.NewIO("scan relation", docID, err)
		}
		if err := a.PutRelation(key, label, arg1, arg2); err != nil {
			return nil, errors.Wrapf(err, "document %s", docID)
		}
	}
	if err := relRows.Err(); err != nil {
		return nil, errors.NewIO("iterate relations", docID, err)
	}

	return a, nil
}

// Documents returns the stored document IDs in lexical order.
func (s *Store) Documents() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM documents ORDER BY id`)
	if err != nil {
		return nil, errors.NewIO("query documents", "", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewIO("scan document", "", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LabelCounts returns corpus-wide entity counts per label across all stored
// documents.
func (s *Store) LabelCounts() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT label, COUNT(*) FROM entities GROUP BY label`)
	if err != nil {
		return nil, errors.NewIO("query label counts", "", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, errors.NewIO("scan label count", "", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}
