package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
// completed выставляется администратором и "липкий": пересчёт его не снимает.
type TournamentStatus string

const (
	StatusOpen      TournamentStatus = "open"
	StatusFull      TournamentStatus = "full"
	StatusCompleted TournamentStatus = "completed"
)

// TournamentMode — формат матча. Для брекет-режимов размер команды фиксирован.
type TournamentMode string

const (
	ModeSolo   TournamentMode = "solo"
	ModeDuo    TournamentMode = "duo"
	ModeSquad  TournamentMode = "squad"
	ModeCustom TournamentMode = "custom"
)

// TeamSize возвращает размер команды для одного слота.
func (m TournamentMode) TeamSize() int {
	switch m {
	case ModeDuo:
		return 2
	case ModeSquad:
		return 4
	default:
		return 1
	}
}

// MaxSlotsFor возвращает фиксированную вместимость брекет-режима,
// либо 0, если вместимость задаёт администратор.
func (m TournamentMode) MaxSlotsFor() int {
	switch m {
	case ModeSolo:
		return 100
	case ModeDuo:
		return 50
	case ModeSquad:
		return 25
	default:
		return 0
	}
}

func (m TournamentMode) IsValid() bool {
	switch m {
	case ModeSolo, ModeDuo, ModeSquad, ModeCustom:
		return true
	}
	return false
}

// Tournament представляет турнир (кастомную комнату).
// BookedSlots и Status — производные значения: пересчитываются из живых
// бронирований плюс ManualSoldSlots, хранятся только как кеш.
type Tournament struct {
	ID              int              `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Description     *string          `json:"description,omitempty" db:"description"`
	Mode            TournamentMode   `json:"mode" db:"mode"`
	MapName         *string          `json:"map_name,omitempty" db:"map_name"`
	StartAt         string           `json:"start_at" db:"start_at"`
	EntryFee        int64            `json:"entry_fee" db:"entry_fee"`
	PrizePool       int64            `json:"prize_pool" db:"prize_pool"`
	MaxSlots        int              `json:"max_slots" db:"max_slots"`
	ManualSoldSlots int              `json:"manual_sold_slots" db:"manual_sold_slots"`
	BookedSlots     int              `json:"booked_slots" db:"booked_slots"`
	Status          TournamentStatus `json:"status" db:"status"`
	RoomID          *string          `json:"room_id,omitempty" db:"room_id"`
	RoomPass        *string          `json:"room_pass,omitempty" db:"room_pass"`
	BannerKey       *string          `json:"-" db:"banner_key"`
	BannerURL       *string          `json:"banner_url,omitempty" db:"-"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// RoomPublished сообщает, опубликованы ли данные комнаты.
// Публикация комнаты закрывает дальнейшее бронирование.
func (t *Tournament) RoomPublished() bool {
	return t.RoomID != nil && *t.RoomID != ""
}
