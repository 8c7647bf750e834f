package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
)

// memStore is an in-memory Store. Transactions are not simulated; tests that
// care about rollback assert on the error instead of the state.
type memStore struct {
	bookings      *memBookingRepo
	credits       *memCreditRepo
	coupons       *memCouponRepo
	payments      *memPaymentRepo
	webhookEvents *memWebhookRepo
	rooms         *memRoomRepo
}

func newMemStore() *memStore {
	return &memStore{
		bookings:      newMemBookingRepo(),
		credits:       newMemCreditRepo(),
		coupons:       newMemCouponRepo(),
		payments:      newMemPaymentRepo(),
		webhookEvents: newMemWebhookRepo(),
		rooms:         newMemRoomRepo(),
	}
}

func (s *memStore) Repos() application.RepositorySet {
	return application.RepositorySet{
		Bookings:      s.bookings,
		Credits:       s.credits,
		Coupons:       s.coupons,
		Payments:      s.payments,
		WebhookEvents: s.webhookEvents,
		Rooms:         s.rooms,
	}
}

func (s *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos application.RepositorySet) error) error {
	return fn(ctx, s.Repos())
}

// memBookingRepo

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*domain.Booking
	buffer   time.Duration

	CreateFn      func(ctx context.Context, booking *domain.Booking) error
	IsAvailableFn func(ctx context.Context, roomID string, start, end time.Time, buffer time.Duration, excludeBookingID string) (bool, error)
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]*domain.Booking)}
}

func (m *memBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, booking)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookings {
		if existing.RoomID != booking.RoomID || existing.IsTerminal() {
			continue
		}
		if domain.Overlaps(booking.StartTime, booking.EndTime, existing.StartTime, existing.EndTime, m.buffer) {
			return domain.NewRoomUnavailableError(booking.RoomID)
		}
	}
	cp := *booking
	m.bookings[booking.ID] = &cp
	return nil
}

func (m *memBookingRepo) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id)
	}
	cp := *b
	return &cp, nil
}

func (m *memBookingRepo) FindByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return m.FindByID(ctx, id)
}

func (m *memBookingRepo) Update(ctx context.Context, booking *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[booking.ID]; !ok {
		return domain.NewNotFoundError("booking", booking.ID)
	}
	cp := *booking
	m.bookings[booking.ID] = &cp
	return nil
}

func (m *memBookingRepo) IsAvailable(ctx context.Context, roomID string, start, end time.Time, buffer time.Duration, excludeBookingID string) (bool, error) {
	if m.IsAvailableFn != nil {
		return m.IsAvailableFn(ctx, roomID, start, end, buffer, excludeBookingID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookings {
		if existing.RoomID != roomID || existing.ID == excludeBookingID || existing.IsTerminal() {
			continue
		}
		if domain.Overlaps(start, end, existing.StartTime, existing.EndTime, buffer) {
			return false, nil
		}
	}
	return true, nil
}

func (m *memBookingRepo) FindExpiredPending(ctx context.Context, now time.Time, fallbackCeiling time.Duration, limit int) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Booking
	for _, b := range m.bookings {
		if len(out) >= limit {
			break
		}
		if b.IsExpired(now, fallbackCeiling) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memBookingRepo) ClaimForCancellation(ctx context.Context, id, reason string, source domain.CancelSource) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != domain.BookingPending {
		return false, nil
	}
	if err := b.Cancel(reason, source); err != nil {
		return false, err
	}
	return true, nil
}

// memCreditRepo

type memCreditRepo struct {
	mu      sync.Mutex
	credits map[string]*domain.Credit

	ApplyDebitsFn func(ctx context.Context, debits []domain.CreditDebit) error
}

func newMemCreditRepo() *memCreditRepo {
	return &memCreditRepo{credits: make(map[string]*domain.Credit)}
}

func (m *memCreditRepo) put(c domain.Credit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := c
	m.credits[c.ID] = &cp
}

func (m *memCreditRepo) get(id string) domain.Credit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.credits[id]
}

func (m *memCreditRepo) FindActiveByUser(ctx context.Context, userID string) ([]domain.Credit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Credit
	for _, c := range m.credits {
		if c.UserID == userID && c.RemainingAmount > 0 {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCreditRepo) FindActiveByUserForUpdate(ctx context.Context, userID string) ([]domain.Credit, error) {
	return m.FindActiveByUser(ctx, userID)
}

func (m *memCreditRepo) FindByIDsForUpdate(ctx context.Context, ids []string) ([]domain.Credit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Credit
	for _, id := range ids {
		if c, ok := m.credits[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCreditRepo) ApplyDebits(ctx context.Context, debits []domain.CreditDebit) error {
	if m.ApplyDebitsFn != nil {
		return m.ApplyDebitsFn(ctx, debits)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range debits {
		c, ok := m.credits[d.CreditID]
		if !ok || c.RemainingAmount < d.Amount {
			return domain.NewInsufficientCreditsError(0, d.Amount)
		}
		c.ApplyDebit(d.Amount)
	}
	return nil
}

func (m *memCreditRepo) ApplyRestores(ctx context.Context, restores []domain.CreditRestore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range restores {
		if c, ok := m.credits[r.CreditID]; ok {
			c.ApplyRestore(r.Amount)
		}
	}
	return nil
}

// memCouponRepo

type memCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]*domain.Coupon
	usages  map[string]domain.CouponUsage // keyed user|code|context
}

func newMemCouponRepo() *memCouponRepo {
	return &memCouponRepo{
		coupons: make(map[string]*domain.Coupon),
		usages:  make(map[string]domain.CouponUsage),
	}
}

func usageKey(u domain.CouponUsage) string {
	return u.UserID + "|" + u.Code + "|" + string(u.Context)
}

func (m *memCouponRepo) put(c domain.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := c
	m.coupons[c.Code] = &cp
}

func (m *memCouponRepo) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[code]
	if !ok {
		return nil, domain.NewNotFoundError("coupon", code)
	}
	cp := *c
	return &cp, nil
}

func (m *memCouponRepo) HasUsage(ctx context.Context, userID, code string, usageContext domain.UsageContext) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.usages[userID+"|"+code+"|"+string(usageContext)]
	return ok, nil
}

func (m *memCouponRepo) RecordUsage(ctx context.Context, usage domain.CouponUsage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := usageKey(usage)
	if _, ok := m.usages[key]; ok {
		return true, nil
	}
	m.usages[key] = usage
	return false, nil
}

func (m *memCouponRepo) RestoreByBooking(ctx context.Context, bookingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, u := range m.usages {
		if u.BookingID != nil && *u.BookingID == bookingID && u.Context == domain.ContextBooking {
			delete(m.usages, key)
			return true, nil
		}
	}
	return false, nil
}

func (m *memCouponRepo) usageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.usages)
}

// memPaymentRepo

type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*domain.Payment

	CreateFn func(ctx context.Context, payment *domain.Payment) error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[string]*domain.Payment)}
}

func (m *memPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.IdempotencyKey == payment.IdempotencyKey {
			return domain.NewDuplicateEntryError("payment")
		}
		if p.BookingID == payment.BookingID && p.IsActive() {
			return domain.NewDuplicateEntryError("active payment")
		}
	}
	cp := *payment
	m.payments[payment.ID] = &cp
	return nil
}

func (m *memPaymentRepo) Update(ctx context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.ID]; !ok {
		return domain.NewNotFoundError("payment", payment.ID)
	}
	cp := *payment
	m.payments[payment.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.IdempotencyKey == key {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memPaymentRepo) FindActiveByBooking(ctx context.Context, bookingID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.BookingID == bookingID && p.IsActive() {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memPaymentRepo) FindByExternalID(ctx context.Context, externalID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ExternalID != nil && *p.ExternalID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError("payment", externalID)
}

func (m *memPaymentRepo) HasApprovedForBooking(ctx context.Context, bookingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.BookingID == bookingID && p.Status == domain.PaymentApproved {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPaymentRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

func (m *memPaymentRepo) byBooking(bookingID string) *domain.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.BookingID == bookingID {
			cp := *p
			return &cp
		}
	}
	return nil
}

// memWebhookRepo

type memWebhookRepo struct {
	mu     sync.Mutex
	events map[string]string
}

func newMemWebhookRepo() *memWebhookRepo {
	return &memWebhookRepo{events: make(map[string]string)}
}

func (m *memWebhookRepo) Record(ctx context.Context, externalEventID, eventType string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[externalEventID]; ok {
		return true, nil
	}
	m.events[externalEventID] = eventType
	return false, nil
}

// memRoomRepo

type memRoomRepo struct {
	mu    sync.Mutex
	rooms map[string]*domain.Room
}

func newMemRoomRepo() *memRoomRepo {
	return &memRoomRepo{rooms: make(map[string]*domain.Room)}
}

func (m *memRoomRepo) put(r domain.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := r
	m.rooms[r.ID] = &cp
}

func (m *memRoomRepo) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, domain.NewNotFoundError("room", id)
	}
	cp := *r
	return &cp, nil
}

// mockGateway

type mockGateway struct {
	mu sync.Mutex

	CreateChargeFn func(ctx context.Context, req application.ChargeRequest, idempotencyKey string) (*application.ChargeResponse, error)
	CancelChargeFn func(ctx context.Context, externalID string) error
	GetChargeFn    func(ctx context.Context, externalID string) (*application.ChargeStatus, error)
	GetPixCodeFn   func(ctx context.Context, externalID string) (string, error)

	createCalls []string
	cancelCalls []string
}

func (g *mockGateway) CreateCharge(ctx context.Context, req application.ChargeRequest, idempotencyKey string) (*application.ChargeResponse, error) {
	g.mu.Lock()
	g.createCalls = append(g.createCalls, idempotencyKey)
	g.mu.Unlock()
	if g.CreateChargeFn != nil {
		return g.CreateChargeFn(ctx, req, idempotencyKey)
	}
	return &application.ChargeResponse{
		ExternalID:  "ext-" + req.BookingID,
		CheckoutURL: "https://pay.example/" + req.BookingID,
		Status:      "pending",
	}, nil
}

func (g *mockGateway) CancelCharge(ctx context.Context, externalID string) error {
	g.mu.Lock()
	g.cancelCalls = append(g.cancelCalls, externalID)
	g.mu.Unlock()
	if g.CancelChargeFn != nil {
		return g.CancelChargeFn(ctx, externalID)
	}
	return nil
}

func (g *mockGateway) GetCharge(ctx context.Context, externalID string) (*application.ChargeStatus, error) {
	if g.GetChargeFn != nil {
		return g.GetChargeFn(ctx, externalID)
	}
	return &application.ChargeStatus{ExternalID: externalID, Status: "approved"}, nil
}

func (g *mockGateway) GetPixCode(ctx context.Context, externalID string) (string, error) {
	if g.GetPixCodeFn != nil {
		return g.GetPixCodeFn(ctx, externalID)
	}
	return "pix-code", nil
}

func (g *mockGateway) createCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.createCalls)
}

func (g *mockGateway) cancelCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.cancelCalls)
}

// mockNotifier

type mockNotifier struct {
	mu   sync.Mutex
	sent []application.BookingConfirmation

	SendFn func(ctx context.Context, n application.BookingConfirmation) error
}

func (m *mockNotifier) SendBookingConfirmation(ctx context.Context, n application.BookingConfirmation) error {
	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()
	if m.SendFn != nil {
		return m.SendFn(ctx, n)
	}
	return nil
}

func (m *mockNotifier) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// mockAudit

type auditEntry struct {
	Action   string
	ActorID  string
	TargetID string
	Metadata map[string]string
}

type mockAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (m *mockAudit) Record(ctx context.Context, action, actorID, targetID string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, auditEntry{Action: action, ActorID: actorID, TargetID: targetID, Metadata: metadata})
	return nil
}

func (m *mockAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}
