package mapper

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// toJSON encodes v for a jsonb column. Nil values are stored as SQL NULL.
func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return nil
	}
	return datatypes.JSON(raw)
}

// fromJSON decodes a jsonb column into out, leaving out untouched when the column is empty.
func fromJSON(raw datatypes.JSON, out interface{}) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, out)
}
