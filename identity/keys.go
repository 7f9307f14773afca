package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewSessionID returns a browsing-session identifier: a base-36 millisecond
// timestamp followed by a random suffix
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return "s" + strconv.FormatInt(now.UnixMilli(), 36) + "-" + suffix
}

// SignalKey derives the document ID of a signal from the pair it correlates.
// The same (listing, session, kind) always maps to the same key, so a save is
// a single create-if-absent-else-merge call.
func SignalKey(listingID, sessionID, kind string) string {
	input := fmt.Sprintf("%s|%s|%s",
		strings.TrimSpace(listingID),
		strings.TrimSpace(sessionID),
		strings.ToLower(kind),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}
