package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	keyID        = "_id"
	keyAltID     = "id"
	keyTitle     = "title"
	keyBody      = "body"
	keyAuthor    = "author"
	keyCreatedAt = "createdAt"
	keyUpdatedAt = "updatedAt"
)

// MarshalJSON writes the known fields over whatever opaque fields the post carries.
func (p Post) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Extra)+6)
	for k, v := range p.Extra {
		out[k] = v
	}

	set := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode post %s: %w", key, err)
		}
		out[key] = raw
		return nil
	}

	if err := set(keyID, p.ID); err != nil {
		return nil, err
	}
	if err := set(keyTitle, p.Title); err != nil {
		return nil, err
	}
	if p.Body != "" {
		if err := set(keyBody, p.Body); err != nil {
			return nil, err
		}
	}
	if p.AuthorID != "" {
		if err := set(keyAuthor, p.AuthorID); err != nil {
			return nil, err
		}
	}
	if !p.CreatedAt.IsZero() {
		if err := set(keyCreatedAt, p.CreatedAt); err != nil {
			return nil, err
		}
	}
	if !p.UpdatedAt.IsZero() {
		if err := set(keyUpdatedAt, p.UpdatedAt); err != nil {
			return nil, err
		}
	}

	return json.Marshal(out)
}

// UnmarshalJSON accepts either "_id" or "id" as the identifier. Numeric ids
// are kept as their decimal text.
func (p *Post) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode post: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("decode post: expected object")
	}

	var decoded Post

	idKey := keyID
	if _, ok := fields[keyID]; !ok {
		idKey = keyAltID
	}
	if raw, ok := fields[idKey]; ok {
		id, err := decodeID(raw)
		if err != nil {
			return err
		}
		decoded.ID = id
		delete(fields, idKey)
	}

	textFields := []struct {
		key string
		dst *string
	}{
		{keyTitle, &decoded.Title},
		{keyBody, &decoded.Body},
		{keyAuthor, &decoded.AuthorID},
	}
	for _, f := range textFields {
		raw, ok := fields[f.key]
		if !ok {
			continue
		}
		if !isNull(raw) {
			if err := json.Unmarshal(raw, f.dst); err != nil {
				return fmt.Errorf("decode post %s: %w", f.key, err)
			}
		}
		delete(fields, f.key)
	}

	times := []struct {
		key string
		dst *time.Time
	}{
		{keyCreatedAt, &decoded.CreatedAt},
		{keyUpdatedAt, &decoded.UpdatedAt},
	}
	for _, f := range times {
		raw, ok := fields[f.key]
		if !ok {
			continue
		}
		// Backends disagree on date formats; unparsable values stay opaque.
		if err := json.Unmarshal(raw, f.dst); err == nil {
			delete(fields, f.key)
		}
	}

	if len(fields) > 0 {
		decoded.Extra = fields
	}

	*p = decoded
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return "", nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode post id: %w", err)
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decode post id: %w", err)
	}
	return n.String(), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
