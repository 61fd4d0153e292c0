package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"charging_station/types"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// CacheAuthorization stores a CSMS authorization result keyed by the hashed
// token.
func (s *Store) CacheAuthorization(hashedToken string, info types.IdTokenInfo, usedAt time.Time) error {
	blob, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal id token info: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO auth_cache (hashed_id_token, id_token_info_json, last_used_at)
		 VALUES (?, ?, ?)`,
		hashedToken, string(blob), usedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("cache authorization: %w", err)
	}
	return nil
}

// CachedAuthorization looks up a cached result and refreshes its
// last-used time.
func (s *Store) CachedAuthorization(hashedToken string, now time.Time) (types.IdTokenInfo, error) {
	var blob string
	err := s.db.QueryRow(
		`SELECT id_token_info_json FROM auth_cache WHERE hashed_id_token = ?`, hashedToken,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return types.IdTokenInfo{}, ErrNotFound
	}
	if err != nil {
		return types.IdTokenInfo{}, fmt.Errorf("load cached authorization: %w", err)
	}
	var info types.IdTokenInfo
	if err := json.Unmarshal([]byte(blob), &info); err != nil {
		return types.IdTokenInfo{}, fmt.Errorf("unmarshal id token info: %w", err)
	}
	if _, err := s.db.Exec(
		`UPDATE auth_cache SET last_used_at = ? WHERE hashed_id_token = ?`,
		now.UTC().Format(time.RFC3339Nano), hashedToken,
	); err != nil {
		return types.IdTokenInfo{}, fmt.Errorf("touch cached authorization: %w", err)
	}
	return info, nil
}

// EvictAuthCacheOverflow drops least-recently-used entries beyond maxEntries.
func (s *Store) EvictAuthCacheOverflow(maxEntries int) error {
	_, err := s.db.Exec(
		`DELETE FROM auth_cache WHERE hashed_id_token IN (
			SELECT hashed_id_token FROM auth_cache
			ORDER BY last_used_at DESC LIMIT -1 OFFSET ?
		)`, maxEntries)
	if err != nil {
		return fmt.Errorf("evict auth cache: %w", err)
	}
	return nil
}

// ClearAuthCache empties the cache (ClearCache request).
func (s *Store) ClearAuthCache() error {
	_, err := s.db.Exec(`DELETE FROM auth_cache`)
	if err != nil {
		return fmt.Errorf("clear auth cache: %w", err)
	}
	return nil
}

// ---- local authorization list ----

// ReplaceLocalAuthList installs a full list at the given version.
func (s *Store) ReplaceLocalAuthList(version int, entries map[string]types.IdTokenInfo) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin local list update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM local_auth_list`); err != nil {
		return fmt.Errorf("clear local list: %w", err)
	}
	for hashed, info := range entries {
		blob, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("marshal local list entry: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO local_auth_list (hashed_id_token, id_token_info_json) VALUES (?, ?)`,
			hashed, string(blob),
		); err != nil {
			return fmt.Errorf("insert local list entry: %w", err)
		}
	}
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO local_auth_list_version (id, version) VALUES (1, ?)`, version,
	); err != nil {
		return fmt.Errorf("store local list version: %w", err)
	}
	return tx.Commit()
}

// UpdateLocalAuthList applies a differential update at the given version.
// Tokens in upserts are inserted or replaced; tokens in removals are deleted.
func (s *Store) UpdateLocalAuthList(version int, upserts map[string]types.IdTokenInfo, removals []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin local list update: %w", err)
	}
	defer tx.Rollback()

	for hashed, info := range upserts {
		blob, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("marshal local list entry: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO local_auth_list (hashed_id_token, id_token_info_json) VALUES (?, ?)`,
			hashed, string(blob),
		); err != nil {
			return fmt.Errorf("upsert local list entry: %w", err)
		}
	}
	for _, hashed := range removals {
		if _, err := tx.Exec(`DELETE FROM local_auth_list WHERE hashed_id_token = ?`, hashed); err != nil {
			return fmt.Errorf("remove local list entry: %w", err)
		}
	}
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO local_auth_list_version (id, version) VALUES (1, ?)`, version,
	); err != nil {
		return fmt.Errorf("store local list version: %w", err)
	}
	return tx.Commit()
}

// LocalAuthListEntry looks up one token in the local list.
func (s *Store) LocalAuthListEntry(hashedToken string) (types.IdTokenInfo, error) {
	var blob string
	err := s.db.QueryRow(
		`SELECT id_token_info_json FROM local_auth_list WHERE hashed_id_token = ?`, hashedToken,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return types.IdTokenInfo{}, ErrNotFound
	}
	if err != nil {
		return types.IdTokenInfo{}, fmt.Errorf("load local list entry: %w", err)
	}
	var info types.IdTokenInfo
	if err := json.Unmarshal([]byte(blob), &info); err != nil {
		return types.IdTokenInfo{}, fmt.Errorf("unmarshal local list entry: %w", err)
	}
	return info, nil
}

// LocalAuthListVersion returns the installed list version, 0 when none.
func (s *Store) LocalAuthListVersion() (int, error) {
	var v int
	err := s.db.QueryRow(`SELECT version FROM local_auth_list_version WHERE id = 1`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load local list version: %w", err)
	}
	return v, nil
}
