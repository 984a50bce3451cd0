// Package ident mints opaque identifiers for surveys, questions, options and
// responses. Identifiers combine a millisecond clock component with a random
// suffix so that independent processes cannot collide on either clock ticks
// or randomness alone.
package ident

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const suffixLen = 9

// NewID returns a fresh collision-resistant identifier.
func NewID() string {
	ms := time.Now().UnixMilli()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
	return strconv.FormatInt(ms, 10) + "-" + suffix
}
