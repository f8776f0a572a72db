package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// CodeAlphabet is the 32-symbol alphabet for room codes. Visually ambiguous
// glyphs (I, O, 0, 1) are excluded so codes can be read aloud.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of every room code.
const CodeLength = 6

// GenerateRoomCode returns a random 6-character room code. Uniqueness is
// enforced by the rooms table constraint, not here; CreateRoom retries on
// collision.
func GenerateRoomCode() string {
	buf := make([]byte, CodeLength)
	max := big.NewInt(int64(len(CodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("store: crypto/rand failed: %v", err))
		}
		buf[i] = CodeAlphabet[n.Int64()]
	}
	return string(buf)
}

// GeneratePlayerID returns a client-generated player token. Tokens are
// opaque; they only need to be unique enough to never collide within a
// room's lifetime.
func GeneratePlayerID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("store: crypto/rand failed: %v", err))
	}
	return fmt.Sprintf("p_%s%x", hex.EncodeToString(buf), time.Now().UnixMilli())
}
