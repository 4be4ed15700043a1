package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SignerEntry is one position in an envelope's signing order.
type SignerEntry struct {
	SignerID string `json:"signer_id"`
	Order    int    `json:"order"`
}

// SigningOrder is stored as a jsonb column. An empty order is persisted as
// an empty array, never NULL.
type SigningOrder []SignerEntry

func (o SigningOrder) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("signing order marshal: %w", err)
	}
	return b, nil
}

func (o *SigningOrder) Scan(value interface{}) error {
	if value == nil {
		*o = SigningOrder{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("signing order scan: unsupported type %T", value)
	}
	if len(raw) == 0 {
		*o = SigningOrder{}
		return nil
	}
	return json.Unmarshal(raw, o)
}

// SignerIDs returns the signer ids in declaration order.
func (o SigningOrder) SignerIDs() []string {
	ids := make([]string, 0, len(o))
	for _, e := range o {
		ids = append(ids, e.SignerID)
	}
	return ids
}

// Contains reports whether userID appears anywhere in the order.
func (o SigningOrder) Contains(userID string) bool {
	for _, e := range o {
		if e.SignerID == userID {
			return true
		}
	}
	return false
}
