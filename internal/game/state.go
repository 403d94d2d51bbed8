package game

// Status is the hole state of the active level.
type Status string

const (
	StatusPlaying Status = "PLAYING"
	StatusWon     Status = "WON"
)
