// Package task defines the task entity and its difficulty/reward rules.
package task

import "time"

// Difficulty grades a task. Only three grades exist; the reward amount is
// derived from the grade, never set by the client.
type Difficulty int

const (
	DifficultyEasy   Difficulty = 1
	DifficultyMedium Difficulty = 2
	DifficultyHard   Difficulty = 3
)

var rewardByDifficulty = map[Difficulty]int{
	DifficultyEasy:   10,
	DifficultyMedium: 20,
	DifficultyHard:   30,
}

// Valid reports whether d is a supported difficulty grade.
func (d Difficulty) Valid() bool {
	_, ok := rewardByDifficulty[d]
	return ok
}

// Reward returns the XP reward for the difficulty. The bool is false for
// unsupported grades.
func (d Difficulty) Reward() (int, bool) {
	amount, ok := rewardByDifficulty[d]
	return amount, ok
}

// Task is a unit of work owned by a user. Once completed it becomes
// immutable apart from deletion; there is no completed -> pending
// transition.
type Task struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Difficulty  Difficulty `json:"difficulty" db:"difficulty"`
	Amount      int        `json:"amount" db:"amount"`
	Completed   bool       `json:"completed" db:"completed"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
