package match

import (
	"fmt"
)

// GameState is the phase a match is in. Exactly one is active at a time.
type GameState int

const (
	None GameState = iota
	GameReady
	GameStart
	GamePlaying
	GameFinish
)

var stateNames = [...]string{
	None:        "None",
	GameReady:   "GameReady",
	GameStart:   "GameStart",
	GamePlaying: "GamePlaying",
	GameFinish:  "GameFinish",
}

func (s GameState) String() string {
	if !s.Valid() {
		return fmt.Sprintf("GameState(%d)", int(s))
	}
	return stateNames[s]
}

// Valid reports whether s is one of the five known states
func (s GameState) Valid() bool {
	return s >= None && s <= GameFinish
}

// ParseGameState maps a state name back to its value
func ParseGameState(name string) (GameState, error) {
	for i, n := range stateNames {
		if n == name {
			return GameState(i), nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

func (s GameState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, int(s))
	}
	return []byte(s.String()), nil
}

func (s *GameState) UnmarshalText(text []byte) error {
	parsed, err := ParseGameState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UIInformation names a HUD field the controller can update
type UIInformation string

const (
	UIGameTime UIInformation = "GameTime"
)

// Origin tells whether a transition was requested locally or replicated from a peer
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)
