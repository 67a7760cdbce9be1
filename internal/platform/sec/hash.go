// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// HashToken returns the hex-encoded BLAKE2b-256 digest of a bearer secret.
//
// Refresh tokens and single-use OAuth codes are stored and looked up by their
// digest so a leaked table or cache never yields a usable credential.
func HashToken(raw string) string {
	sum := blake2b.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
