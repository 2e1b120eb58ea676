package entity

import "time"

// GameResult is the archived outcome of a finished session.
type GameResult struct {
	ID         string    `json:"id"`
	Players    []string  `json:"players"`
	Winner     string    `json:"winner"`
	FinishedAt time.Time `json:"finished_at"`
}

func (that *GameResult) IsTie() bool {
	return that.Winner == WinnerTie
}
