// Package save implements JSON serialization and deserialization of
// session state.
package save

import (
	"encoding/json"
	"fmt"

	"github.com/nathoo/parley/types"
)

// Version is the current save format version.
const Version = "1"

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version  string            `json:"version"`
	ID       string            `json:"id"`
	Topic    string            `json:"topic"`
	Turn     int               `json:"turn"`
	Stars    []string          `json:"stars"`
	Directed bool              `json:"directed"`
	Vars     map[string]string `json:"vars"`
	Bot      map[string]string `json:"bot"`
	History  []types.Exchange  `json:"history"`
}

// Save serializes a session to JSON bytes.
func Save(s *types.Session) ([]byte, error) {
	data := SaveData{
		Version:  Version,
		ID:       s.ID,
		Topic:    s.Topic,
		Turn:     s.TurnCount,
		Stars:    s.Stars,
		Directed: s.Directed,
		Vars:     s.Vars,
		Bot:      s.Bot,
		History:  s.History,
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Version != "" && sd.Version != Version {
		return nil, fmt.Errorf("unsupported save version %q", sd.Version)
	}
	// Ensure collections are never nil after load.
	if sd.Topic == "" {
		sd.Topic = types.BaselineTopic
	}
	if sd.Stars == nil {
		sd.Stars = []string{}
	}
	if sd.Vars == nil {
		sd.Vars = map[string]string{}
	}
	if sd.Bot == nil {
		sd.Bot = map[string]string{}
	}
	if sd.History == nil {
		sd.History = []types.Exchange{}
	}
	return &sd, nil
}

// ApplySave applies loaded save data onto a session. The session keeps
// its own ID.
func ApplySave(s *types.Session, sd *SaveData) {
	s.Topic = sd.Topic
	s.TurnCount = sd.Turn
	s.Stars = sd.Stars
	s.Directed = sd.Directed
	s.Vars = sd.Vars
	s.Bot = sd.Bot
	s.History = sd.History
}
