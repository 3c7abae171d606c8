package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Кошелёк
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// Депозиты
	ErrTxnIDRequired        = errors.New("transaction id is required")
	ErrDuplicateTransaction = errors.New("transaction id is already registered")
	ErrTxnNotFound          = errors.New("transaction id is not registered")
	ErrTxnAlreadyClaimed    = errors.New("transaction is already claimed")

	// Выводы
	ErrWithdrawalBelowMinimum = errors.New("withdrawal amount is below the minimum")
	ErrInvalidPayoutAddress   = errors.New("invalid payout address")
	ErrWithdrawalNotFound     = errors.New("withdrawal request not found")
	ErrWithdrawalAlreadyPaid  = errors.New("withdrawal request is already paid")

	// Турниры и бронирования
	ErrTournamentNotFound        = errors.New("tournament not found")
	ErrTournamentFull            = errors.New("tournament has no free slots")
	ErrBookingClosed             = errors.New("booking is closed: room is already published")
	ErrNameConflict              = errors.New("player name is already booked in this tournament")
	ErrBookingNotFound           = errors.New("booking not found")
	ErrEditWindowClosed          = errors.New("team edit window is closed")
	ErrEmptyRoster               = errors.New("at least one team member is required")
	ErrForbiddenOperation        = errors.New("operation not allowed for the current user")
	ErrTournamentNameRequired    = errors.New("tournament name is required")
	ErrTournamentInvalidMode     = errors.New("invalid tournament mode")
	ErrTournamentInvalidCapacity = errors.New("tournament max slots must be positive")
	ErrManualSlotsNegative       = errors.New("manual sold slots must not be negative")
	ErrRoomCredentialsRequired   = errors.New("room id and room pass are required")

	// Аутентификация
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrAuthUsernameTaken      = errors.New("username is already taken")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrInvalidReferralCode    = errors.New("referral code is not recognized")
)
