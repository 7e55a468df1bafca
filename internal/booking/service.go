// Package booking arbitrates ticket purchases.  It resolves the session,
// area and user, rejects closed sessions and out-of-range seats, and hands
// the indivisible check-and-insert to the occupancy ledger.  Concurrent
// buyers of the same seat get exactly one winner; the others receive
// model.ErrSeatOccupied.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-ticketing/internal/ledger"
	"github.com/iliyamo/theatre-ticketing/internal/lock"
	"github.com/iliyamo/theatre-ticketing/internal/metrics"
	"github.com/iliyamo/theatre-ticketing/internal/model"
	"github.com/iliyamo/theatre-ticketing/internal/queue"
	"github.com/iliyamo/theatre-ticketing/internal/seating"
)

// Directory looks up the collaborators of a purchase by id.  Every method
// returns an error matching the entity's model.Err*NotFound sentinel when
// the id is unknown.
type Directory interface {
	Event(ctx context.Context, id uint64) (*model.Event, error)
	Session(ctx context.Context, id uint64) (*model.Session, error)
	Area(ctx context.Context, id uint64) (*model.Area, error)
	User(ctx context.Context, id uint64) (*model.User, error)
}

// PurchaseRequest asks for one seat.  A zero Price means "charge the area
// price".
type PurchaseRequest struct {
	UserID    uint64
	SessionID uint64
	AreaID    uint64
	Seat      int
	Price     decimal.Decimal
}

// NewCode returns a ticket code: "TKT-" followed by 12 upper-case hex
// characters taken from a random UUID.
func NewCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TKT-" + strings.ToUpper(hex[:12])
}

const (
	codeAttempts   = 5
	publishTimeout = 2 * time.Second
)

// Service is the booking arbitrator.
type Service struct {
	dir     Directory
	inv     *seating.Inventory
	ledger  ledger.Ledger
	locker  lock.Locker
	pub     queue.Publisher
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
	newCode func() string
	loc     *time.Location
	ttl     time.Duration
}

// Option customises a Service.
type Option func(*Service)

// WithLocker serialises purchases of one seat through l before the ledger
// is touched.  Without it the ledger's own atomicity is relied upon.
func WithLocker(l lock.Locker) Option { return func(s *Service) { s.locker = l } }

// WithPublisher sets where ticket events go.
func WithPublisher(p queue.Publisher) Option { return func(s *Service) { s.pub = p } }

// WithMetrics records purchase outcomes and lock waits.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithCodeGenerator replaces NewCode.
func WithCodeGenerator(gen func() string) Option { return func(s *Service) { s.newCode = gen } }

// WithLocation sets the theatre's time zone, in which session dates and
// times are interpreted.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

// WithReservationTTL enables expiry of unpaid reservations older than ttl.
// Zero disables it.
func WithReservationTTL(ttl time.Duration) Option { return func(s *Service) { s.ttl = ttl } }

// NewService panics on nil deps.
func NewService(dir Directory, l ledger.Ledger, opts ...Option) *Service {
	if dir == nil || l == nil {
		panic("booking: nil directory or ledger")
	}
	s := &Service{
		dir:     dir,
		inv:     seating.NewInventory(dir),
		ledger:  l,
		locker:  lock.Nop{},
		pub:     queue.NopPublisher{},
		log:     logrus.StandardLogger(),
		now:     time.Now,
		newCode: NewCode,
		loc:     time.UTC,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ledger exposes the read side for aggregation and listing.
func (s *Service) Ledger() ledger.Reader { return s.ledger }

// Location returns the theatre's time zone.
func (s *Service) Location() *time.Location { return s.loc }

// Purchase sells one seat.  Checks run in this order: session, area and
// user exist (and the area belongs to the session), the session is still
// open, the seat is within the area, the price is not negative.  Only then
// is the ledger asked to insert.
func (s *Service) Purchase(ctx context.Context, req PurchaseRequest) (*model.Ticket, error) {
	t, err := s.purchase(ctx, req)
	s.metrics.Purchase(purchaseResult(err))
	return t, err
}

func (s *Service) purchase(ctx context.Context, req PurchaseRequest) (*model.Ticket, error) {
	sess, err := s.dir.Session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.OffersArea(req.AreaID) {
		return nil, fmt.Errorf("area %d is not offered by session %d: %w", req.AreaID, sess.ID, model.ErrAreaNotFound)
	}
	area, err := s.inv.Area(ctx, req.AreaID)
	if err != nil {
		return nil, err
	}
	user, err := s.dir.User(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, fmt.Errorf("user %d is inactive: %w", user.ID, model.ErrUserNotFound)
	}

	now := s.now()
	if sess.ClosedAt(now.In(s.loc)) {
		return nil, fmt.Errorf("session %d: %w", sess.ID, model.ErrSessionClosed)
	}
	if !seating.IsValidSeat(area, req.Seat) {
		return nil, fmt.Errorf("seat %d of area %d (capacity %d): %w", req.Seat, area.ID, area.Capacity, model.ErrInvalidSeat)
	}
	price := req.Price
	switch {
	case price.IsNegative():
		return nil, fmt.Errorf("price %s: %w", price, model.ErrInvalidPrice)
	case price.IsZero():
		price = area.Price
	}

	t, err := s.reserve(ctx, model.Ticket{
		UserID:      user.ID,
		SessionID:   sess.ID,
		AreaID:      area.ID,
		SeatNumber:  req.Seat,
		Price:       price,
		Status:      model.TicketReserved,
		PurchasedAt: now,
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"ticket_id":  t.ID,
		"session_id": t.SessionID,
		"area_id":    t.AreaID,
		"seat":       t.SeatNumber,
		"user_id":    t.UserID,
	}).Info("ticket reserved")
	s.publish(ctx, queue.TicketReserved, t)
	return t, nil
}

// reserve holds the seat lock only around the ledger insert, retrying with
// a fresh code when the generated one is already in use.
func (s *Service) reserve(ctx context.Context, in model.Ticket) (*model.Ticket, error) {
	release, err := s.acquire(ctx, in.Key())
	if err != nil {
		return nil, err
	}
	defer release()

	for attempt := 0; attempt < codeAttempts; attempt++ {
		in.Code = s.newCode()
		started := time.Now()
		t, err := s.ledger.Reserve(ctx, &in)
		s.metrics.Reserve(time.Since(started))
		if errors.Is(err, ledger.ErrDuplicateCode) {
			s.log.WithField("attempt", attempt+1).Warn("ticket code collision, regenerating")
			continue
		}
		return t, err
	}
	return nil, fmt.Errorf("no unique ticket code after %d attempts: %w", codeAttempts, model.ErrTransient)
}

func (s *Service) acquire(ctx context.Context, key model.SeatKey) (func(), error) {
	started := time.Now()
	release, err := s.locker.Acquire(ctx, key.String())
	s.metrics.LockWait(time.Since(started))
	if err != nil {
		s.log.WithError(err).WithField("seat", key.String()).Warn("seat lock not acquired")
		return nil, err
	}
	return release, nil
}

func (s *Service) publish(ctx context.Context, typ string, t *model.Ticket) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.pub.Publish(pctx, queue.NewTicketEvent(typ, t, s.now())); err != nil {
		s.log.WithError(err).WithField("ticket_id", t.ID).Warn("ticket event not published")
	}
}

func purchaseResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, model.ErrSeatOccupied):
		return metrics.ResultOccupied
	case model.IsTransient(err):
		return metrics.ResultTransient
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrSessionClosed),
		errors.Is(err, model.ErrInvalidSeat), errors.Is(err, model.ErrInvalidPrice):
		return metrics.ResultRejected
	}
	return metrics.ResultError
}

// transition moves a ticket and reports the change.
func (s *Service) transition(ctx context.Context, id uint64, to model.TicketStatus, event string) (*model.Ticket, error) {
	before, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.Status == to {
		return before, nil
	}
	t, err := s.ledger.Transition(ctx, id, to, s.now())
	if err != nil {
		return nil, err
	}
	s.metrics.Transition(string(to))
	s.log.WithFields(logrus.Fields{"ticket_id": id, "from": before.Status, "to": to}).Info("ticket status changed")
	s.publish(ctx, event, t)
	return t, nil
}

// Cancel frees the ticket's seat.  Cancelling a cancelled ticket returns it
// unchanged; a utilized ticket cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, ticketID uint64) (*model.Ticket, error) {
	return s.transition(ctx, ticketID, model.TicketCancelled, queue.TicketCancelled)
}

// MarkPaid records payment of a reserved ticket.
func (s *Service) MarkPaid(ctx context.Context, ticketID uint64) (*model.Ticket, error) {
	return s.transition(ctx, ticketID, model.TicketPaid, queue.TicketPaid)
}

// Redeem validates a ticket at the door by its code and marks it utilized.
// Entry is accepted until the event's running time has elapsed after the
// session start.
func (s *Service) Redeem(ctx context.Context, code string) (*model.Ticket, error) {
	t, err := s.ledger.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if t.Status == model.TicketUtilized {
		return nil, fmt.Errorf("ticket %s already used: %w", t.Code, model.ErrInvalidTransition)
	}
	sess, err := s.dir.Session(ctx, t.SessionID)
	if err != nil {
		return nil, err
	}
	ev, err := s.dir.Event(ctx, sess.EventID)
	if err != nil {
		return nil, err
	}
	end := sess.StartsAt(s.loc).Add(time.Duration(ev.DurationMin) * time.Minute)
	if !sess.Active || !s.now().Before(end) {
		return nil, fmt.Errorf("session %d ended: %w", sess.ID, model.ErrSessionClosed)
	}
	return s.transition(ctx, t.ID, model.TicketUtilized, queue.TicketUtilized)
}

// ListByUser returns the user's tickets, oldest first.
func (s *Service) ListByUser(ctx context.Context, userID uint64) ([]*model.Ticket, error) {
	return s.ledger.ListByUser(ctx, userID)
}

// ListBySession returns every ticket sold for the session, cancelled ones
// included, oldest first.  Unknown sessions are NotFound.
func (s *Service) ListBySession(ctx context.Context, sessionID uint64) ([]*model.Ticket, error) {
	if _, err := s.dir.Session(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.ledger.ListBySession(ctx, sessionID)
}

// Ticket returns one ticket.
func (s *Service) Ticket(ctx context.Context, id uint64) (*model.Ticket, error) {
	return s.ledger.Get(ctx, id)
}

// ExpireReservations cancels RESERVED tickets purchased more than the
// reservation TTL ago and returns how many were cancelled.  It is a no-op
// when no TTL is configured.  Tickets paid or cancelled between the scan
// and the update are skipped.
func (s *Service) ExpireReservations(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	ids, err := s.ledger.ExpiredReservations(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		t, err := s.ledger.TransitionIf(ctx, id, model.TicketReserved, model.TicketCancelled, s.now())
		if errors.Is(err, ledger.ErrStatusChanged) {
			continue
		}
		if err != nil {
			return n, err
		}
		n++
		s.publish(ctx, queue.TicketExpired, t)
	}
	s.metrics.Expired(n)
	return n, nil
}
