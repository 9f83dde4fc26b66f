package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mediaflow-hub/listing-aggregator/aggregate"
)

// encodeCursor packs the per-channel cursor set into one opaque token the
// UI hands back on the next page request.
func encodeCursor(cursors aggregate.CursorSet) (string, error) {
	data, err := json.Marshal(cursors)
	if err != nil {
		return "", fmt.Errorf("encoding cursor set: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// decodeCursor unpacks a token produced by encodeCursor. An empty token
// yields an empty set, meaning first page for every channel.
func decodeCursor(token string) (aggregate.CursorSet, error) {
	if token == "" {
		return aggregate.CursorSet{}, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decoding cursor token: %w", err)
	}
	var cursors aggregate.CursorSet
	if err := json.Unmarshal(data, &cursors); err != nil {
		return nil, fmt.Errorf("decoding cursor token: %w", err)
	}
	return cursors, nil
}
