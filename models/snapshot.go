// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"bytes"
	"encoding/json"
)

// ItemSnapshot is the catalog payload captured when a vote is cast. It is
// stored for audit and never re-fetched or interpreted.
type ItemSnapshot struct {
	Version  int    `json:"version,omitempty"`
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"image_url,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var itemSnapshotKeys = []string{"version", "name", "image_url"}

func (s *ItemSnapshot) UnmarshalJSON(data []byte) error {
	type plain ItemSnapshot
	var p plain
	extra, err := decodeWithExtra(data, &p, itemSnapshotKeys)
	if err != nil {
		return err
	}
	*s = ItemSnapshot(p)
	s.Extra = extra
	return nil
}

func (s ItemSnapshot) MarshalJSON() ([]byte, error) {
	type plain ItemSnapshot
	return encodeWithExtra(plain(s), s.Extra)
}

// IsZero reports whether the snapshot carries no data at all.
func (s ItemSnapshot) IsZero() bool {
	return s.Version == 0 && s.Name == "" && s.ImageURL == "" && len(s.Extra) == 0
}

// decodeWithExtra decodes data into known and returns every top-level key
// not listed in keys.
func decodeWithExtra(data []byte, known any, keys []string) (map[string]json.RawMessage, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range keys {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// encodeWithExtra encodes known and merges extra keys that known does not set.
func encodeWithExtra(known any, extra map[string]json.RawMessage) ([]byte, error) {
	b, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return b, err
	}

	merged := make(map[string]json.RawMessage, len(extra)+4)
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
