package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

func (s *sqlxStore) ReplaceChunks(ctx context.Context, chunks []DocumentChunk) error {
	err := s.withTx(ctx, "replace chunks", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks`); err != nil {
			return s.queryErr(ctx, "clear document chunks", err)
		}

		ts := nowUTC()
		for i := range chunks {
			if chunks[i].CreatedAt.IsZero() {
				chunks[i].CreatedAt = ts
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO document_chunks (source, content, embedding, created_at)
				VALUES (:source, :content, :embedding, :created_at)`, &chunks[i]); err != nil {
				return s.queryErr(ctx, "insert document chunk", err, "source", chunks[i].Source)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Replaced document chunks", "count", len(chunks))
	return nil
}

func (s *sqlxStore) ListChunks(ctx context.Context) ([]DocumentChunk, error) {
	var chunks []DocumentChunk
	if err := s.db.SelectContext(ctx, &chunks, `SELECT id, source, content, embedding, created_at FROM document_chunks ORDER BY id`); err != nil {
		return nil, s.queryErr(ctx, "list document chunks", err)
	}
	return chunks, nil
}

func (s *sqlxStore) CountChunks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM document_chunks`); err != nil {
		return 0, s.queryErr(ctx, "count document chunks", err)
	}
	return n, nil
}
