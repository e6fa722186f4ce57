package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON is a jsonb column holding an arbitrary object
type JSON map[string]interface{}

// Value implements driver.Valuer so gorm can persist the column
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSON column: %T", value)
	}

	if len(data) == 0 {
		*j = nil
		return nil
	}

	result := JSON{}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to unmarshal JSON column: %w", err)
	}
	*j = result
	return nil
}
