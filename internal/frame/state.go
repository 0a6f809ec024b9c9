// Package frame implements the Farcaster frame state codec and the frame
// response descriptor.
package frame

import (
	"encoding/base64"
	"encoding/json"
)

// Stage marks the territory-selection sub-flow position.
type Stage string

const (
	StageSelect  Stage = "select"
	StageConfirm Stage = "confirm"
)

// State is the pagination cursor round-tripped through the frame's opaque
// state token. The token is the only persistence: nothing is stored server
// side. Index is re-clamped against the live feed on every request, since
// the feed may have changed since the token was minted.
type State struct {
	Territory string `json:"territory"`
	Index     int    `json:"index"`
	Stage     Stage  `json:"stage,omitempty"`
}

// Codec serializes State to and from the opaque token.
type Codec struct {
	defaultTerritory string
}

// NewCodec creates a codec whose decode failures yield the given territory.
func NewCodec(defaultTerritory string) *Codec {
	return &Codec{defaultTerritory: defaultTerritory}
}

// Default is the state handed to first-time requests.
func (c *Codec) Default() State {
	return State{Territory: c.defaultTerritory}
}

// Encode serializes the state into the token.
func (c *Codec) Encode(s State) string {
	// State is a plain struct; marshal cannot fail.
	b, _ := json.Marshal(s)
	return base64.StdEncoding.EncodeToString(b)
}

// Decode parses a token back into a State. It never fails: missing or
// malformed tokens yield the default state so the pagination UI always
// recovers to a sane starting point.
func (c *Codec) Decode(token string) State {
	if token == "" {
		return c.Default()
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return c.Default()
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return c.Default()
	}
	if s.Territory == "" {
		s.Territory = c.defaultTerritory
	}
	if s.Index < 0 {
		s.Index = 0
	}
	if s.Stage != StageSelect && s.Stage != StageConfirm {
		s.Stage = ""
	}
	return s
}
