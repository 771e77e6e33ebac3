package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSession is returned by Login when the freshly issued token does not
	// resolve to an identity. The session is left anonymous.
	ErrSession = errors.New("session error")

	// ErrSuperseded means a newer login or logout finished first and this
	// call's result was discarded
	ErrSuperseded = fmt.Errorf("%w: superseded by a newer login or logout", ErrSession)
)
