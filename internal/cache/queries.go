package cache

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/medley/internal/errors"
	"github.com/hpungsan/medley/internal/note"
)

// Put upserts a batch of notes in a single transaction. Rows are replaced
// whole; priority between observations of the same id is the merge layer's
// job, so whatever arrives here is already canonical.
func (s *Store) Put(notes []note.Note) error {
	if len(notes) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.NewStoreUnavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO notes (
			id, author_id, created_at, kind, media_type,
			url, content, title, summary, duration
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			author_id  = excluded.author_id,
			created_at = excluded.created_at,
			kind       = excluded.kind,
			media_type = excluded.media_type,
			url        = excluded.url,
			content    = excluded.content,
			title      = excluded.title,
			summary    = excluded.summary,
			duration   = excluded.duration
	`)
	if err != nil {
		return errors.NewStoreUnavailable(err)
	}
	defer stmt.Close()

	for _, n := range notes {
		if n.ID == "" {
			continue
		}
		_, err := stmt.Exec(
			n.ID, n.AuthorID, n.CreatedAt, n.Kind, string(n.MediaType),
			toNullString(urlPtr(n)), n.Content,
			toNullString(n.Title), toNullString(n.Summary), toNullInt64(n.Duration),
		)
		if err != nil {
			return errors.NewStoreUnavailable(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreUnavailable(err)
	}
	return nil
}

// GetAll returns cached notes sorted by created_at descending. When the cache
// holds more than capacity entries, the overflow (oldest) entries are deleted
// as a side effect and excluded from the result.
func (s *Store) GetAll(capacity int) ([]note.Note, error) {
	if capacity <= 0 {
		return nil, errors.NewInvalidRequest("cache capacity must be positive")
	}

	if _, err := s.evictBeyond(capacity); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT id, author_id, created_at, kind, media_type,
			url, content, title, summary, duration
		FROM notes
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, errors.NewStoreUnavailable(err)
	}
	defer rows.Close()

	var out []note.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, errors.NewStoreUnavailable(err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreUnavailable(err)
	}

	return out, nil
}

// DeleteByIDs removes the given notes. Missing ids are not an error.
func (s *Store) DeleteByIDs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := s.db.Exec(`DELETE FROM notes WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return errors.NewStoreUnavailable(err)
	}
	return nil
}

// Count returns the number of cached notes.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&n); err != nil {
		return 0, errors.NewStoreUnavailable(err)
	}
	return n, nil
}

// Compact re-applies the capacity bound out of band and reports how many
// entries were evicted.
func (s *Store) Compact(capacity int) (int, error) {
	if capacity <= 0 {
		return 0, errors.NewInvalidRequest("cache capacity must be positive")
	}
	return s.evictBeyond(capacity)
}

// Purge drops every cached note.
func (s *Store) Purge() (int, error) {
	res, err := s.db.Exec(`DELETE FROM notes`)
	if err != nil {
		return 0, errors.NewStoreUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewStoreUnavailable(err)
	}
	return int(n), nil
}

// evictBeyond deletes everything but the capacity most recent notes.
func (s *Store) evictBeyond(capacity int) (int, error) {
	res, err := s.db.Exec(`
		DELETE FROM notes
		WHERE id NOT IN (
			SELECT id FROM notes
			ORDER BY created_at DESC, id ASC
			LIMIT ?
		)
	`, capacity)
	if err != nil {
		return 0, errors.NewStoreUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewStoreUnavailable(err)
	}
	return int(n), nil
}

// scanNote scans the current row into a Note.
func scanNote(rows *sql.Rows) (note.Note, error) {
	var (
		n         note.Note
		mediaType string
		url       sql.NullString
		title     sql.NullString
		summary   sql.NullString
		duration  sql.NullInt64
	)

	err := rows.Scan(
		&n.ID, &n.AuthorID, &n.CreatedAt, &n.Kind, &mediaType,
		&url, &n.Content, &title, &summary, &duration,
	)
	if err != nil {
		return note.Note{}, err
	}

	n.MediaType = note.MediaType(mediaType)
	if url.Valid {
		n.URL = url.String
	}
	n.Title = fromNullString(title)
	n.Summary = fromNullString(summary)
	if duration.Valid {
		n.Duration = &duration.Int64
	}

	return n, nil
}

// urlPtr maps an empty URL to NULL storage.
func urlPtr(n note.Note) *string {
	if n.URL == "" {
		return nil
	}
	return &n.URL
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// toNullInt64 converts a *int64 to sql.NullInt64.
func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
