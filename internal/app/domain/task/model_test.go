package task

import "testing"

func TestReward(t *testing.T) {
	tests := []struct {
		difficulty Difficulty
		amount     int
		ok         bool
	}{
		{DifficultyEasy, 10, true},
		{DifficultyMedium, 20, true},
		{DifficultyHard, 30, true},
		{0, 0, false},
		{4, 0, false},
		{-1, 0, false},
	}
	for _, tc := range tests {
		amount, ok := tc.difficulty.Reward()
		if amount != tc.amount || ok != tc.ok {
			t.Errorf("Reward(%d) = (%d, %v), want (%d, %v)", tc.difficulty, amount, ok, tc.amount, tc.ok)
		}
		if tc.difficulty.Valid() != tc.ok {
			t.Errorf("Valid(%d) = %v, want %v", tc.difficulty, tc.difficulty.Valid(), tc.ok)
		}
	}
}
