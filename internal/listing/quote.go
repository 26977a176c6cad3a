package listing

import (
	"errors"
	"time"
)

const (
	dateLayout    = "2006-01-02"
	secondsPerDay = 24 * 60 * 60
)

var (
	ErrInvalidStay = errors.New("check-out must be after check-in")
	ErrInvalidDate = errors.New("dates must be in YYYY-MM-DD format")
)

type BookingQuote struct {
	CheckIn  time.Time
	CheckOut time.Time
	Nights   int
	PerNight float64
	Total    float64
}

// Quote prices a stay of whole nights between two dates.
func Quote(price float64, checkIn, checkOut time.Time) (*BookingQuote, error) {
	in := civilDate(checkIn)
	out := civilDate(checkOut)

	// Unix seconds, since Sub saturates for spans past about 292 years.
	nights := int((out.Unix() - in.Unix()) / secondsPerDay)
	if nights <= 0 {
		return nil, ErrInvalidStay
	}

	return &BookingQuote{
		CheckIn:  in,
		CheckOut: out,
		Nights:   nights,
		PerNight: price,
		Total:    price * float64(nights),
	}, nil
}

// ParseQuote quotes a stay given as YYYY-MM-DD strings.
func ParseQuote(price float64, checkIn, checkOut string) (*BookingQuote, error) {
	in, err := time.Parse(dateLayout, checkIn)
	if err != nil {
		return nil, ErrInvalidDate
	}
	out, err := time.Parse(dateLayout, checkOut)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return Quote(price, in, out)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
