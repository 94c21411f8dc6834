package core

import (
	"bytes"
	"encoding/json"
)

// Tags decodes every shape the backend has stored tags in: a JSON list, a
// string holding a JSON list, or an object {"tags": [...]}. Anything it
// cannot read decodes to an empty list. It always encodes as a list.
type Tags []string

func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

func (t *Tags) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*t = Tags{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	switch b[0] {
	case '[':
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return nil
		}
		*t = list
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil || s == "" {
			return nil
		}
		var list []string
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			*t = list
		}
	case '{':
		var wrapped struct {
			Tags []string `json:"tags"`
		}
		if err := json.Unmarshal(b, &wrapped); err == nil && wrapped.Tags != nil {
			*t = wrapped.Tags
		}
	}
	return nil
}
