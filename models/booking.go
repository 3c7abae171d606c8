package models

import "time"

// Booking — занятый слот в турнире. TeamMembers упорядочен, первый элемент —
// капитан (PlayerName). SlotNumber уникален среди живых бронирований турнира.
type Booking struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	Username     string    `json:"username" db:"username"`
	PlayerName   string    `json:"player_name" db:"player_name"`
	TeamMembers  []string  `json:"team_members" db:"team_members"`
	SlotNumber   int       `json:"slot_number" db:"slot_number"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
