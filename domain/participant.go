// Package domain contains core concepts of the messaging system.
// This file defines participant identity.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"fmt"
	"strconv"
)

// UserID is the stable numeric identifier supplied by the identity boundary.
type UserID int64

func (u UserID) String() string {
	return strconv.FormatInt(int64(u), 10)
}

func (u UserID) Valid() bool {
	return u > 0
}

// ParseUserID parses a decimal identifier as found in URL paths.
func ParseUserID(raw string) (UserID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", raw, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid user id %q: must be positive", raw)
	}
	return UserID(id), nil
}
