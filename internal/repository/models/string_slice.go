package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSlice stores a string list as a JSON array in a CLOB column.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *StringSlice) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = StringSlice{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("StringSlice Scan: unsupported type %T", value)
	}

	if len(raw) == 0 || string(raw) == "null" {
		*s = StringSlice{}
		return nil
	}
	return json.Unmarshal(raw, s)
}
