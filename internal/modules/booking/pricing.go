package booking

import (
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/pkg/apperr"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Price struct {
	Original   decimal.Decimal
	Discounted decimal.Decimal
}

// ComputePrice returns the stay price before and after a percentage discount.
// A zero discountPct leaves both totals equal.
func ComputePrice(nightlyRate decimal.Decimal, nights, roomCount int, discountPct decimal.Decimal) Price {
	n := decimal.NewFromInt(int64(nights))
	rooms := decimal.NewFromInt(int64(roomCount))

	factor := decimal.NewFromInt(1).Sub(discountPct.Div(hundred))

	return Price{
		Original:   nightlyRate.Mul(n).Mul(rooms),
		Discounted: nightlyRate.Mul(factor).Mul(n).Mul(rooms),
	}
}

// ToMinorUnits converts an amount to the smallest currency unit, dropping
// any fraction of a cent.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Truncate(0).IntPart()
}

// ValidateDiscount checks that the offer belongs to the hotel and has not
// expired. An offer expiring today is still valid.
func ValidateDiscount(d *domain.Discount, hotelID int64, today time.Time) error {
	if d.HotelID != hotelID {
		return apperr.Conflict("offer not valid for this hotel")
	}
	if domain.DateOf(d.ExpireDate).Before(domain.DateOf(today)) {
		return apperr.Gone("offer expired")
	}
	return nil
}
