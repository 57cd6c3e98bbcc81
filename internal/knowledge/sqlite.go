package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kweiss/healthrag/internal/embedding"
	"github.com/kweiss/healthrag/internal/model"
)

// store is the SQLite persistence layer behind the Index. Writes are
// transactional per document, so a reader never observes a half-written
// collection.
type store struct {
	db *sql.DB
}

func openStore(dbPath string) (*store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL,
		category   TEXT NOT NULL,
		source     TEXT,
		tags       TEXT,
		added_at   TEXT NOT NULL,
		word_count INTEGER NOT NULL,
		char_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id              TEXT PRIMARY KEY,
		document_id     TEXT NOT NULL REFERENCES documents(id),
		content         TEXT NOT NULL,
		title           TEXT,
		category        TEXT,
		chunk_index     INTEGER NOT NULL,
		chunk_type      TEXT NOT NULL,
		sentence_count  INTEGER,
		paragraph_index INTEGER,
		start_pos       INTEGER,
		end_pos         INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_category ON chunks(category);

	CREATE TABLE IF NOT EXISTS embeddings (
		chunk_id TEXT PRIMARY KEY REFERENCES chunks(id),
		dims     INTEGER NOT NULL,
		vector   BLOB NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *store) saveDocument(ctx context.Context, doc model.Document, chunks []model.Chunk, vectors map[string]embedding.Vector) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var tagsJSON *string
	if len(doc.Tags) > 0 {
		b, _ := json.Marshal(doc.Tags)
		str := string(b)
		tagsJSON = &str
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, title, content, category, source, tags, added_at, word_count, char_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Content, doc.Category, doc.Source, tagsJSON,
		doc.AddedAt.Format(time.RFC3339), doc.WordCount, doc.CharCount)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for _, c := range chunks {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, content, title, category, chunk_index, chunk_type, sentence_count, paragraph_index, start_pos, end_pos)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.DocumentID, c.Content, c.Title, c.Category, c.ChunkIndex,
			c.ChunkType, c.SentenceCount, c.ParagraphIndex, c.StartPos, c.EndPos)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}

		vec := vectors[c.ID]
		_, err = tx.ExecContext(ctx,
			`INSERT INTO embeddings (chunk_id, dims, vector) VALUES (?, ?, ?)`,
			c.ID, len(vec), encodeVector(vec))
		if err != nil {
			return fmt.Errorf("insert embedding: %w", err)
		}
	}

	return tx.Commit()
}

func (s *store) loadAll(ctx context.Context) ([]model.Document, []model.Chunk, map[string]embedding.Vector, error) {
	var docs []model.Document
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, category, source, tags, added_at, word_count, char_count
		 FROM documents ORDER BY added_at`)
	if err != nil {
		return nil, nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d model.Document
		var source, tagsJSON sql.NullString
		var addedAt string
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Category, &source, &tagsJSON, &addedAt, &d.WordCount, &d.CharCount); err != nil {
			return nil, nil, nil, err
		}
		d.Source = source.String
		if d.AddedAt, err = time.Parse(time.RFC3339, addedAt); err != nil {
			return nil, nil, nil, fmt.Errorf("parse added_at: %w", err)
		}
		if tagsJSON.Valid {
			if err := json.Unmarshal([]byte(tagsJSON.String), &d.Tags); err != nil {
				return nil, nil, nil, fmt.Errorf("unmarshal tags: %w", err)
			}
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, err
	}

	var chunks []model.Chunk
	crows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, content, title, category, chunk_index, chunk_type, sentence_count, paragraph_index, start_pos, end_pos
		 FROM chunks ORDER BY document_id, chunk_index`)
	if err != nil {
		return nil, nil, nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var c model.Chunk
		var title, category sql.NullString
		if err := crows.Scan(&c.ID, &c.DocumentID, &c.Content, &title, &category, &c.ChunkIndex, &c.ChunkType, &c.SentenceCount, &c.ParagraphIndex, &c.StartPos, &c.EndPos); err != nil {
			return nil, nil, nil, err
		}
		c.Title = title.String
		c.Category = category.String
		chunks = append(chunks, c)
	}
	if err := crows.Err(); err != nil {
		return nil, nil, nil, err
	}

	vectors := map[string]embedding.Vector{}
	erows, err := s.db.QueryContext(ctx, `SELECT chunk_id, vector FROM embeddings`)
	if err != nil {
		return nil, nil, nil, err
	}
	defer erows.Close()
	for erows.Next() {
		var id string
		var blob []byte
		if err := erows.Scan(&id, &blob); err != nil {
			return nil, nil, nil, err
		}
		vectors[id] = decodeVector(blob)
	}

	return docs, chunks, vectors, erows.Err()
}

func (s *store) clear(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM embeddings`,
		`DELETE FROM chunks`,
		`DELETE FROM documents`,
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *store) Close() error { return s.db.Close() }

// encodeVector packs float32s little-endian for BLOB storage.
func encodeVector(vec embedding.Vector) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) embedding.Vector {
	vec := make(embedding.Vector, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
