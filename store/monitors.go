package store

import (
	"fmt"
)

// MonitorRow is one persisted variable monitor.
type MonitorRow struct {
	ID        int
	Component string
	Variable  string
	Kind      string
	Value     float64
	Severity  int
}

// SaveMonitor installs or replaces a monitor by id.
func (s *Store) SaveMonitor(m MonitorRow) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO monitors (id, component, variable, kind, value, severity)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Component, m.Variable, m.Kind, m.Value, m.Severity,
	)
	if err != nil {
		return fmt.Errorf("save monitor %d: %w", m.ID, err)
	}
	return nil
}

// DeleteMonitor removes a monitor, reporting whether it existed.
func (s *Store) DeleteMonitor(id int) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM monitors WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete monitor %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Monitors returns all persisted monitors.
func (s *Store) Monitors() ([]MonitorRow, error) {
	rows, err := s.db.Query(`SELECT id, component, variable, kind, value, severity FROM monitors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load monitors: %w", err)
	}
	defer rows.Close()

	var out []MonitorRow
	for rows.Next() {
		var m MonitorRow
		if err := rows.Scan(&m.ID, &m.Component, &m.Variable, &m.Kind, &m.Value, &m.Severity); err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
