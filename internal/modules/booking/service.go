package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/pkg/apperr"
	"hotelbooking/internal/pkg/validator"
	"hotelbooking/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// Requests without a client request id collapse into one key per window.
	idempotencyWindow   = 15 * time.Minute
	compensationTimeout = 10 * time.Second
	defaultMaxNights    = 365
)

var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hotelbooking/reservations"))

type CreateReservationInput struct {
	UserID       int64     `validate:"required,gt=0"`
	HotelID      int64     `validate:"required,gt=0"`
	RoomNumbers  []string  `validate:"required,min=1,dive,roomnumber"`
	Start        time.Time `validate:"required"`
	End          time.Time `validate:"required"`
	DiscountCode string    `validate:"omitempty,max=64"`
	RequestID    string    `validate:"omitempty,max=128"`
}

type ReservationResult struct {
	ClientSecret  string
	TransactionID string
	Booking       *domain.Booking
	Replayed      bool
}

type Service struct {
	hotels       HotelDirectory
	discounts    DiscountDirectory
	bookings     BookingStore
	uow          domain.UnitOfWork
	gateway      PaymentGateway
	availability *AvailabilityChecker
	pendingTTL   time.Duration
	maxNights    int
	now          func() time.Time
	loggerf      func(format string, args ...interface{})
}

func NewService(
	hotels HotelDirectory,
	discounts DiscountDirectory,
	bookings BookingStore,
	uow domain.UnitOfWork,
	gateway PaymentGateway,
	pendingTTL time.Duration,
	maxNights int,
	loggerf func(format string, args ...interface{}),
) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	if maxNights <= 0 {
		maxNights = defaultMaxNights
	}
	return &Service{
		hotels:       hotels,
		discounts:    discounts,
		bookings:     bookings,
		uow:          uow,
		gateway:      gateway,
		availability: NewAvailabilityChecker(bookings),
		pendingTTL:   pendingTTL,
		maxNights:    maxNights,
		now:          time.Now,
		loggerf:      loggerf,
	}
}

// CreateReservation validates the request, opens a payment transaction and
// persists a pending booking bound to it.
func (s *Service) CreateReservation(ctx context.Context, in CreateReservationInput) (*ReservationResult, error) {
	res, err := s.createReservation(ctx, in)
	if err != nil {
		if !apperr.IsBusiness(err) {
			s.loggerf("level=error msg=create reservation failed user_id=%d hotel_id=%d rooms=%v err=%v",
				in.UserID, in.HotelID, in.RoomNumbers, err)
		}
		return nil, apperr.Unexpected(err, "create reservation")
	}
	return res, nil
}

func (s *Service) createReservation(ctx context.Context, in CreateReservationInput) (*ReservationResult, error) {
	now := s.now().UTC()
	in.RoomNumbers = uniqueRooms(in.RoomNumbers)
	if errs := validator.Validate(in); errs != nil {
		return nil, apperr.Validation("invalid reservation request: %s", formatFieldErrors(errs))
	}

	start, end := domain.DateOf(in.Start), domain.DateOf(in.End)
	if !end.After(start) {
		return nil, apperr.Validation("end date must be after start date")
	}
	if nights := domain.NightsBetween(start, end); nights > s.maxNights {
		return nil, apperr.Validation("stay of %d nights exceeds the maximum of %d", nights, s.maxNights)
	}
	if start.Before(domain.DateOf(now)) {
		return nil, apperr.Validation("start date must not be in the past")
	}

	key := idempotencyKey(in, start, end, now)
	if res, err := s.replay(ctx, in.UserID, key); res != nil || err != nil {
		return res, err
	}

	hotel, err := s.hotels.FindHotelWithRooms(ctx, in.HotelID, in.RoomNumbers)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("hotel %d not found", in.HotelID)
		}
		return nil, apperr.Infrastructure(err, "load hotel %d", in.HotelID)
	}
	if missing := missingRooms(hotel, in.RoomNumbers); len(missing) > 0 {
		return nil, apperr.NotFound("room %s not found in hotel %d", missing[0], in.HotelID)
	}

	for _, room := range in.RoomNumbers {
		ok, err := s.availability.IsAvailable(ctx, in.HotelID, room, start, end)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, roomTaken(room)
		}
	}

	pct := decimal.Zero
	var discountID *string
	if in.DiscountCode != "" {
		d, err := s.discounts.GetDiscount(ctx, in.DiscountCode)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.NotFound("offer %s not found", in.DiscountCode)
			}
			return nil, apperr.Infrastructure(err, "load offer %s", in.DiscountCode)
		}
		if err := ValidateDiscount(d, in.HotelID, now); err != nil {
			return nil, err
		}
		pct = d.Percentage
		discountID = &d.ID
	}

	price := ComputePrice(hotel.NightlyRate, domain.NightsBetween(start, end), len(in.RoomNumbers), pct)
	amount := ToMinorUnits(price.Discounted)
	if amount <= 0 {
		return nil, apperr.Validation("reservation total must be positive")
	}

	ptx, err := s.gateway.OpenTransaction(ctx, amount, hotel.Currency, key)
	if err != nil {
		if apperr.IsTyped(err) {
			return nil, err
		}
		return nil, apperr.Infrastructure(err, "open payment transaction")
	}

	b := &domain.Booking{
		UserID:          in.UserID,
		StartDate:       start,
		EndDate:         end,
		DiscountID:      discountID,
		OriginalTotal:   price.Original,
		DiscountedTotal: price.Discounted,
		AmountMinor:     amount,
		Currency:        hotel.Currency,
		TransactionID:   ptx.ID,
		IdempotencyKey:  key,
		Status:          domain.BookingPending,
		ExpiresAt:       now.Add(s.pendingTTL),
	}
	for _, room := range in.RoomNumbers {
		b.Rooms = append(b.Rooms, domain.RoomReservation{HotelID: in.HotelID, RoomNumber: room})
	}

	err = s.uow.Do(ctx, func(tx domain.ReservationTx) error {
		if err := tx.LockRooms(ctx, in.HotelID, in.RoomNumbers); err != nil {
			return err
		}
		for _, room := range in.RoomNumbers {
			overlap, err := tx.HasOverlap(ctx, in.HotelID, room, start, end)
			if err != nil {
				return err
			}
			if overlap {
				return roomTaken(room)
			}
		}
		return tx.InsertPending(ctx, b)
	})
	if err != nil {
		s.releaseTransaction(ctx, ptx.ID, err)
		switch {
		case errors.Is(err, domain.ErrDuplicateTransaction):
			return nil, apperr.Conflict("payment transaction already bound to a booking")
		case errors.Is(err, domain.ErrRoomTaken):
			return nil, apperr.Conflict("room not available for the selected dates")
		case apperr.IsTyped(err):
			return nil, err
		default:
			return nil, apperr.Infrastructure(err, "persist booking")
		}
	}

	s.loggerf("level=info msg=reservation created booking_id=%d user_id=%d hotel_id=%d transaction_id=%s amount_minor=%d",
		b.ID, b.UserID, in.HotelID, b.TransactionID, b.AmountMinor)

	return &ReservationResult{
		ClientSecret:  ptx.ClientSecret,
		TransactionID: ptx.ID,
		Booking:       b,
	}, nil
}

// replay returns the booking already created for the same request. The
// gateway is asked again with the same key so the caller gets the secret back.
func (s *Service) replay(ctx context.Context, userID int64, key string) (*ReservationResult, error) {
	existing, err := s.bookings.FindPendingByIdempotencyKey(ctx, userID, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Infrastructure(err, "look up previous reservation")
	}

	ptx, err := s.gateway.OpenTransaction(ctx, existing.AmountMinor, existing.Currency, key)
	if err != nil {
		if apperr.IsTyped(err) {
			return nil, err
		}
		return nil, apperr.Infrastructure(err, "open payment transaction")
	}
	if ptx.ID != existing.TransactionID {
		s.releaseTransaction(ctx, ptx.ID, errors.New("idempotency key reused after provider expiry"))
		return nil, apperr.Conflict("reservation already pending for this request")
	}

	s.loggerf("level=info msg=reservation replayed booking_id=%d transaction_id=%s", existing.ID, existing.TransactionID)
	return &ReservationResult{
		ClientSecret:  ptx.ClientSecret,
		TransactionID: ptx.ID,
		Booking:       existing,
		Replayed:      true,
	}, nil
}

// releaseTransaction cancels a provider transaction that no booking refers to.
// It runs detached from the request so a cancelled client does not leave the
// transaction open.
func (s *Service) releaseTransaction(ctx context.Context, transactionID string, cause error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if _, err := s.bookings.FindByTransactionID(cctx, transactionID); err == nil {
		return
	}
	if err := s.gateway.CancelTransaction(cctx, transactionID); err != nil {
		s.loggerf("level=error msg=orphaned payment transaction, manual reconciliation required transaction_id=%s cause=%v err=%v",
			transactionID, cause, err)
		return
	}
	s.loggerf("level=warn msg=payment transaction cancelled after failed reservation transaction_id=%s cause=%v", transactionID, cause)
}

// GetReservation returns a booking owned by userID.
func (s *Service) GetReservation(ctx context.Context, userID, bookingID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, apperr.Infrastructure(err, "load booking %d", bookingID)
	}
	if b.UserID != userID {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func roomTaken(room string) error {
	return apperr.Conflict("room %s not available for the selected dates", room)
}

func uniqueRooms(rooms []string) []string {
	seen := make(map[string]struct{}, len(rooms))
	out := make([]string, 0, len(rooms))
	for _, r := range rooms {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func missingRooms(hotel *domain.Hotel, requested []string) []string {
	known := make(map[string]struct{}, len(hotel.Rooms))
	for _, r := range hotel.Rooms {
		known[r.RoomNumber] = struct{}{}
	}
	var missing []string
	for _, r := range requested {
		if _, ok := known[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// idempotencyKey derives a stable key from the reservation request. The same
// key is passed to the payment provider so retries reuse one transaction.
func idempotencyKey(in CreateReservationInput, start, end, now time.Time) string {
	rooms := append([]string(nil), in.RoomNumbers...)
	sort.Strings(rooms)

	scope := in.RequestID
	if scope == "" {
		scope = fmt.Sprintf("t%d", now.Truncate(idempotencyWindow).Unix())
	}
	name := fmt.Sprintf("%d|%d|%s|%s|%s|%s|%s",
		in.UserID, in.HotelID, strings.Join(rooms, ","),
		start.Format(domain.DateLayout), end.Format(domain.DateLayout),
		in.DiscountCode, scope)
	return uuid.NewSHA1(idempotencyNamespace, []byte(name)).String()
}

func formatFieldErrors(errs map[string]string) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+" "+errs[f])
	}
	return strings.Join(parts, ", ")
}
