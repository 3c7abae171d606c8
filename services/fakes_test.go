package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/CustomZone1/customzone/models"
	"github.com/CustomZone1/customzone/repositories"
)

// memStore — общее состояние in-memory фейков. Транзакции сериализуются
// на txMu, откат реализован снимком состояния: фейки повторяют
// транзакционную семантику настоящих репозиториев.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	wallets       map[int]int64
	walletTxns    []models.WalletTransaction
	deposits      map[string]*models.AdminDeposit
	withdrawals   map[int]*models.Withdrawal
	tournaments   map[int]*models.Tournament
	bookings      map[int]*models.Booking
	memberKeys    map[int]map[string]int // tournamentID -> nameKey -> bookingID
	notifications []models.Notification
	users         map[int]*models.User

	nextID int
}

func newMemStore() *memStore {
	return &memStore{
		wallets:     make(map[int]int64),
		deposits:    make(map[string]*models.AdminDeposit),
		withdrawals: make(map[int]*models.Withdrawal),
		tournaments: make(map[int]*models.Tournament),
		bookings:    make(map[int]*models.Booking),
		memberKeys:  make(map[int]map[string]int),
		users:       make(map[int]*models.User),
	}
}

func (s *memStore) nextIDLocked() int {
	s.nextID++
	return s.nextID
}

type memSnapshot struct {
	wallets       map[int]int64
	walletTxns    []models.WalletTransaction
	deposits      map[string]*models.AdminDeposit
	withdrawals   map[int]*models.Withdrawal
	tournaments   map[int]*models.Tournament
	bookings      map[int]*models.Booking
	memberKeys    map[int]map[string]int
	notifications []models.Notification
	users         map[int]*models.User
	nextID        int
}

func (s *memStore) snapshotLocked() memSnapshot {
	snap := memSnapshot{
		wallets:       make(map[int]int64, len(s.wallets)),
		walletTxns:    append([]models.WalletTransaction(nil), s.walletTxns...),
		deposits:      make(map[string]*models.AdminDeposit, len(s.deposits)),
		withdrawals:   make(map[int]*models.Withdrawal, len(s.withdrawals)),
		tournaments:   make(map[int]*models.Tournament, len(s.tournaments)),
		bookings:      make(map[int]*models.Booking, len(s.bookings)),
		memberKeys:    make(map[int]map[string]int, len(s.memberKeys)),
		notifications: append([]models.Notification(nil), s.notifications...),
		users:         make(map[int]*models.User, len(s.users)),
		nextID:        s.nextID,
	}
	for k, v := range s.wallets {
		snap.wallets[k] = v
	}
	for k, v := range s.deposits {
		d := *v
		snap.deposits[k] = &d
	}
	for k, v := range s.withdrawals {
		w := *v
		snap.withdrawals[k] = &w
	}
	for k, v := range s.tournaments {
		t := *v
		snap.tournaments[k] = &t
	}
	for k, v := range s.bookings {
		b := *v
		b.TeamMembers = append([]string(nil), v.TeamMembers...)
		snap.bookings[k] = &b
	}
	for tid, keys := range s.memberKeys {
		inner := make(map[string]int, len(keys))
		for k, v := range keys {
			inner[k] = v
		}
		snap.memberKeys[tid] = inner
	}
	for k, v := range s.users {
		u := *v
		snap.users[k] = &u
	}
	return snap
}

func (s *memStore) restoreLocked(snap memSnapshot) {
	s.wallets = snap.wallets
	s.walletTxns = snap.walletTxns
	s.deposits = snap.deposits
	s.withdrawals = snap.withdrawals
	s.tournaments = snap.tournaments
	s.bookings = snap.bookings
	s.memberKeys = snap.memberKeys
	s.notifications = snap.notifications
	s.users = snap.users
	s.nextID = snap.nextID
}

type memTransactor struct {
	s *memStore
}

func (t *memTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	snap := t.s.snapshotLocked()
	t.s.mu.Unlock()

	if err := fn(nil); err != nil {
		t.s.mu.Lock()
		t.s.restoreLocked(snap)
		t.s.mu.Unlock()
		return err
	}
	return nil
}

// fakeWalletRepo

type fakeWalletRepo struct{ s *memStore }

func (r *fakeWalletRepo) GetBalanceForUpdate(ctx context.Context, exec repositories.SQLExecutor, userID int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.wallets[userID], nil
}

func (r *fakeWalletRepo) GetBalance(ctx context.Context, userID int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.wallets[userID], nil
}

func (r *fakeWalletRepo) SetBalance(ctx context.Context, exec repositories.SQLExecutor, userID int, balance int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.wallets[userID] = balance
	return nil
}

func (r *fakeWalletRepo) AppendTransaction(ctx context.Context, exec repositories.SQLExecutor, txn *models.WalletTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn.ID = r.s.nextIDLocked()
	txn.CreatedAt = time.Now()
	r.s.walletTxns = append(r.s.walletTxns, *txn)
	return nil
}

func (r *fakeWalletRepo) ListTransactions(ctx context.Context, userID int, limit, offset int) ([]models.WalletTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.WalletTransaction
	for i := len(r.s.walletTxns) - 1; i >= 0; i-- {
		if r.s.walletTxns[i].UserID == userID {
			out = append(out, r.s.walletTxns[i])
		}
	}
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// fakeDepositRepo

type fakeDepositRepo struct{ s *memStore }

func (r *fakeDepositRepo) Create(ctx context.Context, deposit *models.AdminDeposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.deposits[deposit.NormalizedTxnID]; ok {
		return repositories.ErrDepositTxnConflict
	}
	deposit.ID = r.s.nextIDLocked()
	deposit.RegisteredAt = time.Now()
	stored := *deposit
	r.s.deposits[deposit.NormalizedTxnID] = &stored
	return nil
}

func (r *fakeDepositRepo) GetByNormalizedTxnID(ctx context.Context, exec repositories.SQLExecutor, normalizedTxnID string) (*models.AdminDeposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.deposits[normalizedTxnID]
	if !ok {
		return nil, repositories.ErrDepositNotFound
	}
	d := *stored
	return &d, nil
}

func (r *fakeDepositRepo) Claim(ctx context.Context, exec repositories.SQLExecutor, normalizedTxnID string, userID int, username string, claimedAt time.Time) (*models.AdminDeposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.deposits[normalizedTxnID]
	if !ok {
		return nil, repositories.ErrDepositNotFound
	}
	if stored.Status != models.DepositAvailable {
		return nil, repositories.ErrDepositAlreadyClaimed
	}
	stored.Status = models.DepositClaimed
	stored.ClaimedAt = &claimedAt
	stored.ClaimedByUserID = &userID
	stored.ClaimedByUsername = &username
	d := *stored
	return &d, nil
}

func (r *fakeDepositRepo) List(ctx context.Context, limit, offset int) ([]models.AdminDeposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.AdminDeposit
	for _, d := range r.s.deposits {
		out = append(out, *d)
	}
	return out, nil
}

// fakeWithdrawalRepo

type fakeWithdrawalRepo struct{ s *memStore }

func (r *fakeWithdrawalRepo) Create(ctx context.Context, exec repositories.SQLExecutor, w *models.Withdrawal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w.ID = r.s.nextIDLocked()
	w.RequestedAt = time.Now()
	stored := *w
	r.s.withdrawals[w.ID] = &stored
	return nil
}

func (r *fakeWithdrawalRepo) GetByID(ctx context.Context, id int) (*models.Withdrawal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.withdrawals[id]
	if !ok {
		return nil, repositories.ErrWithdrawalNotFound
	}
	w := *stored
	return &w, nil
}

func (r *fakeWithdrawalRepo) MarkPaid(ctx context.Context, id int, processedAt time.Time) (*models.Withdrawal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.withdrawals[id]
	if !ok {
		return nil, repositories.ErrWithdrawalNotFound
	}
	if stored.Status != models.WithdrawalPending {
		return nil, repositories.ErrWithdrawalAlreadyPaid
	}
	stored.Status = models.WithdrawalPaid
	stored.ProcessedAt = &processedAt
	w := *stored
	return &w, nil
}

func (r *fakeWithdrawalRepo) ListByUser(ctx context.Context, userID int) ([]models.Withdrawal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Withdrawal
	for _, w := range r.s.withdrawals {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *fakeWithdrawalRepo) List(ctx context.Context, status *models.WithdrawalStatus, limit, offset int) ([]models.Withdrawal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Withdrawal
	for _, w := range r.s.withdrawals {
		if status == nil || w.Status == *status {
			out = append(out, *w)
		}
	}
	return out, nil
}

// fakeTournamentRepo

type fakeTournamentRepo struct{ s *memStore }

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.nextIDLocked()
	t.CreatedAt = time.Now()
	stored := *t
	r.s.tournaments[t.ID] = &stored
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	t := *stored
	return &t, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Tournament
	for _, t := range r.s.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Mode != nil && t.Mode != *filter.Mode {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) ListIDsByStatusNot(ctx context.Context, status models.TournamentStatus) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []int
	for id, t := range r.s.tournaments {
		if t.Status != status {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tournaments[t.ID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	created := stored.CreatedAt
	*stored = *t
	stored.CreatedAt = created
	return nil
}

func (r *fakeTournamentRepo) UpdateCounters(ctx context.Context, exec repositories.SQLExecutor, id int, bookedSlots, manualSoldSlots int, status models.TournamentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	stored.BookedSlots = bookedSlots
	stored.ManualSoldSlots = manualSoldSlots
	stored.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateRoom(ctx context.Context, exec repositories.SQLExecutor, id int, roomID, roomPass string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	stored.RoomID = &roomID
	stored.RoomPass = &roomPass
	return nil
}

func (r *fakeTournamentRepo) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	stored.BannerKey = bannerKey
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.s.tournaments, id)
	for bid, b := range r.s.bookings {
		if b.TournamentID == id {
			delete(r.s.bookings, bid)
		}
	}
	delete(r.s.memberKeys, id)
	return nil
}

// fakeBookingRepo

type fakeBookingRepo struct{ s *memStore }

func (r *fakeBookingRepo) Create(ctx context.Context, exec repositories.SQLExecutor, booking *models.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.TournamentID == booking.TournamentID && b.SlotNumber == booking.SlotNumber {
			return repositories.ErrBookingSlotConflict
		}
	}
	booking.ID = r.s.nextIDLocked()
	booking.CreatedAt = time.Now()
	stored := *booking
	stored.TeamMembers = append([]string(nil), booking.TeamMembers...)
	r.s.bookings[booking.ID] = &stored
	return nil
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.bookings[id]
	if !ok {
		return nil, repositories.ErrBookingNotFound
	}
	b := *stored
	b.TeamMembers = append([]string(nil), stored.TeamMembers...)
	return &b, nil
}

func (r *fakeBookingRepo) FindByUserAndTournament(ctx context.Context, tournamentID, userID int) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, stored := range r.s.bookings {
		if stored.TournamentID == tournamentID && stored.UserID == userID {
			b := *stored
			b.TeamMembers = append([]string(nil), stored.TeamMembers...)
			return &b, nil
		}
	}
	return nil, repositories.ErrBookingNotFound
}

func (r *fakeBookingRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Booking
	for _, stored := range r.s.bookings {
		if stored.TournamentID == tournamentID {
			b := *stored
			b.TeamMembers = append([]string(nil), stored.TeamMembers...)
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, b := range r.s.bookings {
		if b.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeBookingRepo) MaxSlotNumber(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := 0
	for _, b := range r.s.bookings {
		if b.TournamentID == tournamentID && b.SlotNumber > max {
			max = b.SlotNumber
		}
	}
	return max, nil
}

func (r *fakeBookingRepo) UpdateMembers(ctx context.Context, exec repositories.SQLExecutor, id int, playerName string, members []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.bookings[id]
	if !ok {
		return repositories.ErrBookingNotFound
	}
	stored.PlayerName = playerName
	stored.TeamMembers = append([]string(nil), members...)
	return nil
}

func (r *fakeBookingRepo) ReplaceMemberKeys(ctx context.Context, exec repositories.SQLExecutor, bookingID, tournamentID int, nameKeys []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	keys := r.s.memberKeys[tournamentID]
	if keys == nil {
		keys = make(map[string]int)
		r.s.memberKeys[tournamentID] = keys
	}
	for k, owner := range keys {
		if owner == bookingID {
			delete(keys, k)
		}
	}
	for _, k := range nameKeys {
		if _, taken := keys[k]; taken {
			return repositories.ErrBookingNameConflict
		}
		keys[k] = bookingID
	}
	return nil
}

func (r *fakeBookingRepo) InsertMemberKeys(ctx context.Context, exec repositories.SQLExecutor, bookingID, tournamentID int, nameKeys []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	keys := r.s.memberKeys[tournamentID]
	if keys == nil {
		keys = make(map[string]int)
		r.s.memberKeys[tournamentID] = keys
	}
	for _, k := range nameKeys {
		if _, taken := keys[k]; taken {
			return repositories.ErrBookingNameConflict
		}
	}
	for _, k := range nameKeys {
		keys[k] = bookingID
	}
	return nil
}

func (r *fakeBookingRepo) AnyMemberKeyExists(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, nameKeys []string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	keys := r.s.memberKeys[tournamentID]
	for _, k := range nameKeys {
		if _, taken := keys[k]; taken {
			return true, nil
		}
	}
	return false, nil
}

// fakeNotificationRepo

type fakeNotificationRepo struct{ s *memStore }

func (r *fakeNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = r.s.nextIDLocked()
	n.CreatedAt = time.Now()
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID int, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Notification
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		n := r.s.notifications[i]
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notifications {
		if r.s.notifications[i].UserID == userID {
			r.s.notifications[i].Read = true
		}
	}
	return nil
}

// fakeUserRepo

type fakeUserRepo struct{ s *memStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if u.Username == user.Username {
			return repositories.ErrUserUsernameConflict
		}
	}
	user.ID = r.s.nextIDLocked()
	user.CreatedAt = time.Now()
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	u := *stored
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, stored := range r.s.users {
		if stored.Email == email {
			u := *stored
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, stored := range r.s.users {
		if stored.ReferralCode == code {
			u := *stored
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

// noopNotifier отбрасывает уведомления в тестах, где инбокс не проверяется.
type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, userID int, typ models.NotificationType, title, body string) {
}

// testEnv собирает сервисы поверх одного общего memStore.
type testEnv struct {
	store *memStore

	wallets       *WalletService
	deposits      *DepositService
	withdrawals   *WithdrawalService
	tournaments   *TournamentService
	bookings      *BookingService
	notifications *NotificationService
	auth          AuthService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	tx := &memTransactor{s: store}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	notificationService := NewNotificationService(&fakeNotificationRepo{s: store}, logger)
	walletService := NewWalletService(tx, &fakeWalletRepo{s: store}, notificationService)
	depositService := NewDepositService(tx, &fakeDepositRepo{s: store}, walletService, notificationService)
	withdrawalService := NewWithdrawalService(tx, &fakeWithdrawalRepo{s: store}, walletService, notificationService, 200)
	tournamentService := NewTournamentService(tx, &fakeTournamentRepo{s: store}, &fakeBookingRepo{s: store}, nil, notificationService, logger)
	bookingService := NewBookingService(tx, &fakeBookingRepo{s: store}, &fakeTournamentRepo{s: store}, walletService, tournamentService, notificationService)
	authService := NewAuthService(&fakeUserRepo{s: store}, walletService, 20)

	return &testEnv{
		store:         store,
		wallets:       walletService,
		deposits:      depositService,
		withdrawals:   withdrawalService,
		tournaments:   tournamentService,
		bookings:      bookingService,
		notifications: notificationService,
		auth:          authService,
	}
}

func (e *testEnv) fund(userID int, amount int64) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.wallets[userID] = amount
}

func (e *testEnv) balance(userID int) int64 {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.wallets[userID]
}
