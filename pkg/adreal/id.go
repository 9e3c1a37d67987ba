package adreal

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ID is an entity identifier. The API is inconsistent about whether ids
// are serialized as JSON numbers or strings, so ID accepts both and
// normalizes to the decimal string form used in query parameters.
type ID string

// UnmarshalJSON accepts "123", 123 and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "adreal: unmarshal id")
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return eris.Wrap(err, "adreal: unmarshal id")
	}
	*id = ID(n.String())
	return nil
}

// String returns the decimal string form.
func (id ID) String() string { return string(id) }
