package store

import (
	"database/sql"
	"fmt"
)

// VariableRow is one persisted device model attribute value.
type VariableRow struct {
	Component string
	Variable  string
	Attribute string
	Value     string
	Source    string
}

// SaveVariable persists one attribute value and the source of the write.
func (s *Store) SaveVariable(row VariableRow) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO device_model_variables (component, variable, attribute_kind, value, source)
		 VALUES (?, ?, ?, ?, ?)`,
		row.Component, row.Variable, row.Attribute, row.Value, row.Source,
	)
	if err != nil {
		return fmt.Errorf("save variable %s/%s: %w", row.Component, row.Variable, err)
	}
	return nil
}

// Variable loads one attribute value.
func (s *Store) Variable(component, variable, attribute string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM device_model_variables
		 WHERE component = ? AND variable = ? AND attribute_kind = ?`,
		component, variable, attribute,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load variable %s/%s: %w", component, variable, err)
	}
	return value, nil
}

// Variables returns all persisted attribute values.
func (s *Store) Variables() ([]VariableRow, error) {
	rows, err := s.db.Query(
		`SELECT component, variable, attribute_kind, value, source
		 FROM device_model_variables ORDER BY component, variable, attribute_kind`)
	if err != nil {
		return nil, fmt.Errorf("load variables: %w", err)
	}
	defer rows.Close()

	var out []VariableRow
	for rows.Next() {
		var r VariableRow
		if err := rows.Scan(&r.Component, &r.Variable, &r.Attribute, &r.Value, &r.Source); err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
