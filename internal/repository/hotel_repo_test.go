package repository

import (
	"context"
	"testing"
	"time"

	"hotelbooking/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindHotelWithRooms_FiltersRequestedRooms(t *testing.T) {
	db := newTestDB(t)
	h := seedHotel(t, db, "101", "102", "103")
	repo := NewHotelRepository(db)

	got, err := repo.FindHotelWithRooms(context.Background(), h.ID, []string{"101", "103", "999"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(got.NightlyRate))

	numbers := make([]string, 0, len(got.Rooms))
	for _, r := range got.Rooms {
		numbers = append(numbers, r.RoomNumber)
	}
	assert.ElementsMatch(t, []string{"101", "103"}, numbers)

	_, err = repo.FindHotelWithRooms(context.Background(), h.ID+100, []string{"101"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindHotelSummary_AggregatesRating(t *testing.T) {
	db := newTestDB(t)
	h := seedHotel(t, db, "101")
	for _, r := range []int{5, 4, 3} {
		require.NoError(t, db.Create(&domain.Review{HotelID: h.ID, UserID: 1, Rating: r}).Error)
	}
	repo := NewHotelRepository(db)

	s, err := repo.FindHotelSummary(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Seaside", s.Name)
	assert.InDelta(t, 4.0, s.Rating, 0.0001)
	assert.Equal(t, int64(3), s.ReviewCount)
}

func TestDiscountAndUserLookups(t *testing.T) {
	db := newTestDB(t)
	h := seedHotel(t, db, "101")
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.Discount{
		ID: "SPRING25", HotelID: h.ID, Percentage: decimal.NewFromInt(25),
		ExpireDate: time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC),
	}).Error)
	d, err := NewDiscountRepository(db).GetDiscount(ctx, "SPRING25")
	require.NoError(t, err)
	assert.Equal(t, h.ID, d.HotelID)
	_, err = NewDiscountRepository(db).GetDiscount(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	u := &domain.User{Email: "guest@example.com", Name: "Guest", Role: domain.RoleGuest}
	require.NoError(t, db.Create(u).Error)
	got, err := NewUserRepository(db).FindUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "guest@example.com", got.Email)
	_, err = NewUserRepository(db).FindUser(ctx, u.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentEventRepository_RecordOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentEventRepository(db)
	ctx := context.Background()

	ok, err := repo.Record(ctx, &domain.PaymentEvent{EventID: "evt_1", Type: "payment_intent.succeeded", ProcessedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Record(ctx, &domain.PaymentEvent{EventID: "evt_1", Type: "payment_intent.succeeded", ProcessedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := repo.Exists(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, exists)
}
