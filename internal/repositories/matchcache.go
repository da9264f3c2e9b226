package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/wavelend/crosstide/internal/models"
)

// MatchCacheRepository persists track match outcomes keyed by
// (fingerprint, search mode).
//
// Negative (not-found) outcomes are cached too, so fruitless searches are
// not repeated; because the key includes the search mode, a negative
// entry recorded under one mode never satisfies a lookup under another.
type MatchCacheRepository struct {
	db *sql.DB
}

// NewMatchCacheRepository creates a repository over an open database that
// has had migrations applied.
func NewMatchCacheRepository(db *sql.DB) *MatchCacheRepository {
	return &MatchCacheRepository{db: db}
}

// Lookup returns the cached entry for (fingerprint, mode), or nil when
// the cache has no entry for that key.
func (r *MatchCacheRepository) Lookup(fingerprint, mode string) (*models.CacheEntry, error) {
	query := `
		SELECT fingerprint, mode, status, target_id, criterion, updated_at
		FROM match_cache
		WHERE fingerprint = ? AND mode = ?
	`

	var entry models.CacheEntry
	var status, criterion int
	err := r.db.QueryRow(query, fingerprint, mode).Scan(
		&entry.Fingerprint,
		&entry.Mode,
		&status,
		&entry.Result.TargetID,
		&criterion,
		&entry.Timestamp,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query match cache: %w", err)
	}

	entry.Result.Status = models.MatchStatus(status)
	entry.Result.Criterion = models.MatchCriterion(criterion)
	return &entry, nil
}

// Store records a match outcome for (fingerprint, mode). Stores are
// last-write-wins: an existing entry for the same key is overwritten in a
// single UPSERT, giving entry-level atomicity under concurrent writers.
func (r *MatchCacheRepository) Store(fingerprint, mode string, result models.MatchResult) error {
	query := `
		INSERT INTO match_cache (fingerprint, mode, status, target_id, criterion, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (fingerprint, mode) DO UPDATE SET
			status = excluded.status,
			target_id = excluded.target_id,
			criterion = excluded.criterion,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		fingerprint,
		mode,
		int(result.Status),
		result.TargetID,
		int(result.Criterion),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Invalidate removes the entry for (fingerprint, mode). Removing an
// absent entry is not an error.
func (r *MatchCacheRepository) Invalidate(fingerprint, mode string) error {
	_, err := r.db.Exec(`DELETE FROM match_cache WHERE fingerprint = ? AND mode = ?`, fingerprint, mode)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

// Clear removes every cache entry.
func (r *MatchCacheRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM match_cache`); err != nil {
		return fmt.Errorf("failed to clear match cache: %w", err)
	}
	return nil
}

// CacheStats summarizes cache contents for the cache CLI command.
type CacheStats struct {
	Total     int
	Matched   int
	NotFound  int
	Ambiguous int
}

// Stats counts cache entries grouped by outcome.
func (r *MatchCacheRepository) Stats() (*CacheStats, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(1) FROM match_cache GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache stats: %w", err)
	}
	defer rows.Close()

	stats := &CacheStats{}
	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan cache stats: %w", err)
		}
		stats.Total += count
		switch models.MatchStatus(status) {
		case models.StatusMatched:
			stats.Matched = count
		case models.StatusNotFound:
			stats.NotFound = count
		case models.StatusAmbiguous:
			stats.Ambiguous = count
		}
	}
	return stats, rows.Err()
}
