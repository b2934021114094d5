package service

import (
	"math"
	"strings"
	"time"

	"booking-service/internal/apperr"
)

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// PriceQuote is the result of pricing a date range
type PriceQuote struct {
	Start time.Time
	End   time.Time
	Days  int64
	Total int64
}

// ParseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date, which
// is read as UTC midnight
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// BillableDays counts the days between start and end at millisecond
// resolution, rounding any partial day up: 25 hours bills as 2 days.
// time.Duration overflows past ~292 years, so the span is taken in epoch
// milliseconds.
func BillableDays(start, end time.Time) int64 {
	span := end.UnixMilli() - start.UnixMilli()
	if span <= 0 {
		return 0
	}
	return (span + msPerDay - 1) / msPerDay
}

// ComputeTotal prices a booking at perDayRate (smallest currency unit) over
// [startDate, endDate). A zero rate is a free booking.
func ComputeTotal(perDayRate int64, startDate, endDate string) (*PriceQuote, error) {
	if perDayRate < 0 {
		return nil, apperr.Validation("Invalid per-day rate")
	}

	start, err := ParseDate(startDate)
	if err != nil {
		return nil, apperr.Validation("Invalid dates")
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return nil, apperr.Validation("Invalid dates")
	}
	days := BillableDays(start, end)
	if days <= 0 {
		return nil, apperr.Validation("endDate must be after startDate")
	}
	if perDayRate > 0 && days > math.MaxInt64/perDayRate {
		return nil, apperr.Validation("Booking total is too large")
	}

	return &PriceQuote{
		Start: start,
		End:   end,
		Days:  days,
		Total: perDayRate * days,
	}, nil
}
