package query

import "encoding/json"

// decodeStrings unmarshals a jsonb []byte into *out, leaving *out nil on an
// empty blob rather than erroring — several jsonb columns here are
// optional string-list snapshots (quality issues, recommendations).
func decodeStrings(raw []byte, out *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
