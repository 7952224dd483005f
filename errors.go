package harness

import "github.com/pkg/errors"

// ErrPeerClosed reports that the other end of a [Context]/[Handle] pair
// went away: the driver dropped its [Handle], or the unit closed its
// [Context].
//
// It is a signal to be acted on, not a failure of the pair itself; a unit
// typically treats it as the request to shut down. Use [errors.Is] to test
// for it, as it is usually returned wrapped with the operation that
// observed it.
var ErrPeerClosed = errors.New("peer closed")
