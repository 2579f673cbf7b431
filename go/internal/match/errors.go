package match

import "errors"

var (
	ErrUnknownState     = errors.New("unknown game state")
	ErrUnknownEventCode = errors.New("unknown event code")
	ErrClosed           = errors.New("match controller closed")
)
