package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"charging_station/types"
)

// StoredProfile pairs a charging profile with the evse it is installed on.
type StoredProfile struct {
	EvseID  int
	Profile types.ChargingProfile
}

// SaveChargingProfile installs or replaces a profile by id.
func (s *Store) SaveChargingProfile(evseID int, p types.ChargingProfile) error {
	blob, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal charging profile %d: %w", p.ID, err)
	}
	var validFrom, validTo, txnID sql.NullString
	if p.ValidFrom != nil {
		validFrom = sql.NullString{String: p.ValidFrom.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	if p.ValidTo != nil {
		validTo = sql.NullString{String: p.ValidTo.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	if p.TransactionID != "" {
		txnID = sql.NullString{String: p.TransactionID, Valid: true}
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO charging_profiles
		 (id, evse_id, purpose, stack_level, json_blob, valid_from, valid_to, transaction_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, evseID, string(p.Purpose), p.StackLevel, string(blob), validFrom, validTo, txnID,
	)
	if err != nil {
		return fmt.Errorf("save charging profile %d: %w", p.ID, err)
	}
	return nil
}

// DeleteChargingProfile removes a profile by id. Returns false when no such
// profile was installed.
func (s *Store) DeleteChargingProfile(id int) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM charging_profiles WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete charging profile %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteChargingProfilesForTransaction removes all TxProfiles bound to a
// finished transaction.
func (s *Store) DeleteChargingProfilesForTransaction(transactionID string) error {
	_, err := s.db.Exec(`DELETE FROM charging_profiles WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return fmt.Errorf("delete profiles of transaction %s: %w", transactionID, err)
	}
	return nil
}

// ChargingProfiles returns every stored profile, ordered by profile id.
func (s *Store) ChargingProfiles() ([]StoredProfile, error) {
	rows, err := s.db.Query(`SELECT evse_id, json_blob FROM charging_profiles ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("load charging profiles: %w", err)
	}
	defer rows.Close()

	var out []StoredProfile
	for rows.Next() {
		var sp StoredProfile
		var blob string
		if err := rows.Scan(&sp.EvseID, &blob); err != nil {
			return nil, fmt.Errorf("scan charging profile: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &sp.Profile); err != nil {
			return nil, fmt.Errorf("unmarshal charging profile: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}
