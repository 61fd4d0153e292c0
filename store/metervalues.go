package store

import (
	"encoding/json"
	"fmt"
	"time"

	"charging_station/types"
)

// SaveTransactionMeterValue appends one sampled meter value to an open
// transaction's history.
func (s *Store) SaveTransactionMeterValue(transactionID string, seqNo int, mv types.MeterValue) error {
	blob, err := json.Marshal(mv)
	if err != nil {
		return fmt.Errorf("marshal meter value: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO transaction_meter_values (transaction_id, seq_no, meter_value_json, timestamp)
		 VALUES (?, ?, ?, ?)`,
		transactionID, seqNo, string(blob), mv.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save meter value for %s: %w", transactionID, err)
	}
	return nil
}

// TransactionMeterValues returns the stored history in sample order.
func (s *Store) TransactionMeterValues(transactionID string) ([]types.MeterValue, error) {
	rows, err := s.db.Query(
		`SELECT meter_value_json FROM transaction_meter_values
		 WHERE transaction_id = ? ORDER BY seq_no ASC`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("load meter values for %s: %w", transactionID, err)
	}
	defer rows.Close()

	var out []types.MeterValue
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan meter value: %w", err)
		}
		var mv types.MeterValue
		if err := json.Unmarshal([]byte(blob), &mv); err != nil {
			return nil, fmt.Errorf("unmarshal meter value: %w", err)
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

// DeleteTransactionMeterValues drops the history once the Ended event has
// been enqueued.
func (s *Store) DeleteTransactionMeterValues(transactionID string) error {
	_, err := s.db.Exec(`DELETE FROM transaction_meter_values WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return fmt.Errorf("delete meter values for %s: %w", transactionID, err)
	}
	return nil
}
