package allocation

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidUserID is returned for user identifiers that cannot address a record.
var ErrInvalidUserID = errors.New("invalid user identifier")

const (
	maxPlainKeyLen = 128
	hashedKeyMark  = "~"
	recordSuffix   = "_portfolio.json"
)

// recordKey returns the file-safe key of a user identifier.
//
// Identifiers made of [A-Za-z0-9_.-] not starting with a dot are used as is,
// any other identifier is replaced by the sha1 of it, marked with a leading
// "~" so that the two forms never collide.
func recordKey(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	if isPlainKey(userID) {
		return userID, nil
	}
	return fmt.Sprintf("%s%x", hashedKeyMark, sha1.Sum([]byte(userID))), nil
}

func isPlainKey(s string) bool {
	if s == "" || len(s) > maxPlainKeyLen || s[0] == '.' {
		return false
	}
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}

// userFromFile returns the user identifier stored in a record file name, if
// it can be recovered from it.
func userFromFile(name string) (string, bool) {
	key, ok := strings.CutSuffix(name, recordSuffix)
	if !ok || !isPlainKey(key) {
		return "", false
	}
	return key, true
}
