package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/cardtree/pkg/debug"
	"github.com/vanderheijden86/cardtree/pkg/model"
)

// schema is the layout written by WriteSQLite and expected by SQLiteReader.
// Edge position orders children under a parent; node position orders
// the node set itself.
const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL,
	parent_id   TEXT,
	description TEXT,
	position    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS edges (
	parent_id TEXT NOT NULL,
	child_id  TEXT NOT NULL,
	position  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (parent_id, child_id)
);
CREATE INDEX IF NOT EXISTS idx_edges_child ON edges(child_id);
`

// SQLiteReader provides read access to a card tree SQLite database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000&_journal_mode=WAL", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -64000",  // 64MB cache
		"PRAGMA mmap_size = 268435456", // 256MB mmap
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("sqlite %s: %s failed: %v", source.Path, pragma, err)
		}
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadNodes reads every node and rebuilds child lists and leaf parent lists
// from the edges table.
func (r *SQLiteReader) LoadNodes(ctx context.Context) ([]model.Node, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, type, parent_id, description
		FROM nodes
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []model.Node
	index := make(map[model.ID]int)
	for rows.Next() {
		var (
			id, name, typ     string
			parentID, details sql.NullString
		)
		if err := rows.Scan(&id, &name, &typ, &parentID, &details); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n := model.Node{
			ID:          model.ID(id),
			Name:        name,
			Kind:        model.Kind(typ).Normalize(),
			ParentID:    model.ID(parentID.String),
			Description: details.String,
		}
		index[n.ID] = len(nodes)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}

	edges, err := r.db.QueryContext(ctx, `
		SELECT e.parent_id, e.child_id
		FROM edges e
		LEFT JOIN nodes p ON p.id = e.parent_id
		ORDER BY COALESCE(p.position, 0), e.parent_id, e.position
	`)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer edges.Close()

	for edges.Next() {
		var parent, child string
		if err := edges.Scan(&parent, &child); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		pid, cid := model.ID(parent), model.ID(child)
		if pi, ok := index[pid]; ok {
			nodes[pi].ChildrenIDs = append(nodes[pi].ChildrenIDs, cid)
		}
		if ci, ok := index[cid]; ok && nodes[ci].Kind == model.KindLeaf {
			nodes[ci].ParentIDs = append(nodes[ci].ParentIDs, pid)
		}
	}
	if err := edges.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return nodes, nil
}

// CountNodes returns the number of rows in the nodes table.
func (r *SQLiteReader) CountNodes(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return n, nil
}

// WriteSQLite writes nodes to a fresh database at path, replacing any
// existing file.
func WriteSQLite(ctx context.Context, path string, nodes []model.Node) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing database: %w", err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	insNode, err := tx.PrepareContext(ctx,
		"INSERT INTO nodes (id, name, type, parent_id, description, position) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare nodes: %w", err)
	}
	defer insNode.Close()
	insEdge, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO edges (parent_id, child_id, position) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare edges: %w", err)
	}
	defer insEdge.Close()

	for i, n := range nodes {
		var parent, details sql.NullString
		if n.ParentID != "" {
			parent = sql.NullString{String: string(n.ParentID), Valid: true}
		}
		if n.Description != "" {
			details = sql.NullString{String: n.Description, Valid: true}
		}
		if _, err := insNode.ExecContext(ctx, string(n.ID), n.Name, string(n.Kind.Normalize()), parent, details, i); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
		for pos, child := range n.ChildrenIDs {
			if _, err := insEdge.ExecContext(ctx, string(n.ID), string(child), pos); err != nil {
				return fmt.Errorf("insert edge %s->%s: %w", n.ID, child, err)
			}
		}
	}
	return tx.Commit()
}
