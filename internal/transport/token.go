package transport

import (
	"crypto/rand"
	"encoding/hex"
)

// SessionToken builds the "<agent>-<8hex>" display token. The MCP
// transport library generates its own internal session id used for wire
// framing; this token rides alongside it in the registry and in logs so
// operators see agent identity at a glance.
func SessionToken(agent string) string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return agent + "-" + hex.EncodeToString(b[:])
}
