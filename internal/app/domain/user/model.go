// Package user defines the user aggregate root for the progression system.
package user

import "time"

// Defaults applied at registration. The threshold starts at the literal 100
// and is only recomputed from the level curve once the user levels up.
const (
	DefaultLevel         = 1
	DefaultXP            = 0
	DefaultXPToNextLevel = 100
)

// User is a registered player. XP accumulates toward XPToNextLevel; after
// every completed state transition XP < XPToNextLevel holds.
type User struct {
	ID            string    `json:"id" db:"id"`
	Username      string    `json:"username" db:"username"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	Level         int       `json:"level" db:"level"`
	XP            int       `json:"xp" db:"xp"`
	XPToNextLevel int       `json:"xp_to_next_level" db:"xp_to_next_level"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// NextLevelThreshold returns floor(level * 100 * 1.5), the XP required to
// leave the given level.
func NextLevelThreshold(level int) int {
	return level * 100 * 3 / 2
}

// New returns a user with the registration defaults applied. The defaults
// are set explicitly rather than left to the storage layer, because the
// in-memory value is used before any reload.
func New(username, passwordHash string) User {
	return User{
		Username:      username,
		PasswordHash:  passwordHash,
		Level:         DefaultLevel,
		XP:            DefaultXP,
		XPToNextLevel: DefaultXPToNextLevel,
	}
}
