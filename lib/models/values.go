package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList persists a set of free-form labels (segments, browser names)
// as a JSON array in a single text column.
type StringList []string

func (l StringList) GormDataType() string {
	return "text"
}

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

func (l StringList) Contains(s string) bool {
	for _, elem := range l {
		if elem == s {
			return true
		}
	}
	return false
}

func (l StringList) ContainsAny(other StringList) bool {
	for _, elem := range other {
		if l.Contains(elem) {
			return true
		}
	}
	return false
}
