package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kweiss/healthrag/internal/model"
)

// store persists long-term memories and user profiles. Session memories are
// in-memory only and die with the process.
type store struct {
	db *sql.DB
}

func openStore(path string) (*store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS long_term_memories (
		id                 TEXT PRIMARY KEY,
		session_id         TEXT NOT NULL,
		user_id            TEXT NOT NULL,
		user_message       TEXT NOT NULL,
		assistant_response TEXT NOT NULL,
		timestamp          TEXT NOT NULL,
		context            TEXT NOT NULL DEFAULT '{}',
		relevance_score    REAL NOT NULL,
		keywords           TEXT NOT NULL DEFAULT '[]',
		sentiment          TEXT NOT NULL,
		promoted_at        TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_ltm_user ON long_term_memories(user_id);
	CREATE INDEX IF NOT EXISTS idx_ltm_timestamp ON long_term_memories(timestamp);

	CREATE TABLE IF NOT EXISTS user_profiles (
		user_id             TEXT PRIMARY KEY,
		total_conversations INTEGER NOT NULL,
		total_messages      INTEGER NOT NULL,
		health_interests    TEXT NOT NULL DEFAULT '{}',
		sentiment_counts    TEXT NOT NULL DEFAULT '{}',
		last_interaction    TEXT NOT NULL,
		preferences         TEXT NOT NULL DEFAULT '{}'
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *store) saveLongTerm(ctx context.Context, e model.MemoryEntry) error {
	contextJSON, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	keywordsJSON, err := json.Marshal(e.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	var promotedAt sql.NullString
	if e.PromotedAt != nil {
		promotedAt = sql.NullString{String: e.PromotedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO long_term_memories
		(id, session_id, user_id, user_message, assistant_response, timestamp,
		 context, relevance_score, keywords, sentiment, promoted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.UserID, e.UserMessage, e.AssistantResponse,
		e.Timestamp.UTC().Format(time.RFC3339),
		string(contextJSON), e.RelevanceScore, string(keywordsJSON), e.Sentiment, promotedAt)
	if err != nil {
		return fmt.Errorf("insert long-term memory: %w", err)
	}
	return nil
}

func (s *store) saveProfile(ctx context.Context, p model.UserProfile) error {
	interestsJSON, err := json.Marshal(p.HealthInterests)
	if err != nil {
		return fmt.Errorf("marshal health interests: %w", err)
	}
	sentimentJSON, err := json.Marshal(p.SentimentCounts)
	if err != nil {
		return fmt.Errorf("marshal sentiment counts: %w", err)
	}
	prefsJSON, err := json.Marshal(p.Preferences)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO user_profiles
		(user_id, total_conversations, total_messages, health_interests,
		 sentiment_counts, last_interaction, preferences)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.TotalConversations, p.TotalMessages,
		string(interestsJSON), string(sentimentJSON),
		p.LastInteraction.UTC().Format(time.RFC3339), string(prefsJSON))
	if err != nil {
		return fmt.Errorf("upsert user profile: %w", err)
	}
	return nil
}

func (s *store) loadAll(ctx context.Context) ([]model.MemoryEntry, map[string]*model.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, user_message, assistant_response,
		       timestamp, context, relevance_score, keywords, sentiment, promoted_at
		FROM long_term_memories ORDER BY timestamp`)
	if err != nil {
		return nil, nil, fmt.Errorf("query long-term memories: %w", err)
	}
	defer rows.Close()

	var entries []model.MemoryEntry
	for rows.Next() {
		var e model.MemoryEntry
		var ts, contextJSON, keywordsJSON string
		var promotedAt sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.UserMessage,
			&e.AssistantResponse, &ts, &contextJSON, &e.RelevanceScore,
			&keywordsJSON, &e.Sentiment, &promotedAt); err != nil {
			return nil, nil, fmt.Errorf("scan long-term memory: %w", err)
		}
		e.MemoryType = model.MemoryLongTerm
		if e.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, nil, fmt.Errorf("parse timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(contextJSON), &e.Context); err != nil {
			return nil, nil, fmt.Errorf("unmarshal context: %w", err)
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &e.Keywords); err != nil {
			return nil, nil, fmt.Errorf("unmarshal keywords: %w", err)
		}
		if promotedAt.Valid {
			t, err := time.Parse(time.RFC3339, promotedAt.String)
			if err != nil {
				return nil, nil, fmt.Errorf("parse promoted_at: %w", err)
			}
			e.PromotedAt = &t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	profiles := map[string]*model.UserProfile{}
	prows, err := s.db.QueryContext(ctx, `
		SELECT user_id, total_conversations, total_messages, health_interests,
		       sentiment_counts, last_interaction, preferences
		FROM user_profiles`)
	if err != nil {
		return nil, nil, fmt.Errorf("query user profiles: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		var p model.UserProfile
		var interestsJSON, sentimentJSON, prefsJSON, last string
		if err := prows.Scan(&p.UserID, &p.TotalConversations, &p.TotalMessages,
			&interestsJSON, &sentimentJSON, &last, &prefsJSON); err != nil {
			return nil, nil, fmt.Errorf("scan user profile: %w", err)
		}
		if p.LastInteraction, err = time.Parse(time.RFC3339, last); err != nil {
			return nil, nil, fmt.Errorf("parse last_interaction: %w", err)
		}
		if err := json.Unmarshal([]byte(interestsJSON), &p.HealthInterests); err != nil {
			return nil, nil, fmt.Errorf("unmarshal health interests: %w", err)
		}
		if err := json.Unmarshal([]byte(sentimentJSON), &p.SentimentCounts); err != nil {
			return nil, nil, fmt.Errorf("unmarshal sentiment counts: %w", err)
		}
		if err := json.Unmarshal([]byte(prefsJSON), &p.Preferences); err != nil {
			return nil, nil, fmt.Errorf("unmarshal preferences: %w", err)
		}
		profiles[p.UserID] = &p
	}
	return entries, profiles, prows.Err()
}

func (s *store) deleteBefore(ctx context.Context, cutoff time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM long_term_memories WHERE timestamp <= ?`,
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("delete expired memories: %w", err)
	}
	return nil
}

func (s *store) deleteUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM long_term_memories WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete user memories: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM user_profiles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete user profile: %w", err)
	}
	return nil
}

func (s *store) Close() error { return s.db.Close() }
