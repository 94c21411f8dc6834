package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"lin/internal/core"
)

// Envelope is the normalized response wrapper. The backend answers either
// {success, data, message, meta} or the older {message, data}; bare JSON
// bodies are treated as data.
type Envelope struct {
	Success bool
	Data    json.RawMessage
	Message string
	Meta    json.RawMessage
	// Legacy is set when the body had no success flag.
	Legacy bool
	// Extra holds any other top-level fields (confidence, transcribed_text, ...).
	Extra map[string]json.RawMessage
}

var envelopeKeys = map[string]bool{"success": true, "data": true, "message": true, "meta": true}

func decodeEnvelope(body []byte) (*Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &Envelope{Success: true, Legacy: true}, nil
	}

	var fields map[string]json.RawMessage
	if body[0] != '{' || json.Unmarshal(body, &fields) != nil {
		if !json.Valid(body) {
			return nil, fmt.Errorf("response is not JSON")
		}
		return &Envelope{Success: true, Data: body, Legacy: true}, nil
	}

	_, hasSuccess := fields["success"]
	_, hasData := fields["data"]
	_, hasMessage := fields["message"]
	if !hasSuccess && !hasData && !hasMessage {
		return &Envelope{Success: true, Data: body, Legacy: true}, nil
	}

	env := &Envelope{Success: true, Legacy: !hasSuccess, Data: fields["data"], Meta: fields["meta"]}
	if hasSuccess {
		if err := json.Unmarshal(fields["success"], &env.Success); err != nil {
			return nil, fmt.Errorf("decode success flag: %w", err)
		}
	}
	if hasMessage {
		_ = json.Unmarshal(fields["message"], &env.Message)
	}
	for k, v := range fields {
		if !envelopeKeys[k] {
			if env.Extra == nil {
				env.Extra = make(map[string]json.RawMessage)
			}
			env.Extra[k] = v
		}
	}
	return env, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// DecodeData unmarshals the data field into v. A missing or null data field
// leaves v untouched.
func (e *Envelope) DecodeData(v any) error {
	if isNull(e.Data) {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// DecodeExtra unmarshals a top-level field outside data. It reports whether
// the field was present.
func (e *Envelope) DecodeExtra(key string, v any) (bool, error) {
	raw, ok := e.Extra[key]
	if !ok || isNull(raw) {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

// Page returns the pagination block from meta, zero when absent.
func (e *Envelope) Page() core.PageMeta {
	var meta core.PageMeta
	if !isNull(e.Meta) {
		_ = json.Unmarshal(e.Meta, &meta)
	}
	return meta
}
