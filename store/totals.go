package store

import "github.com/shopspring/decimal"

type BookingTotals struct {
	Bookings int `json:"bookings"`
	Covers   int `json:"covers"`
}

func SumBookings(items []Booking) BookingTotals {
	t := BookingTotals{Bookings: len(items)}
	for _, b := range items {
		t.Covers += b.PartySize
	}
	return t
}

type ReservationTotals struct {
	Reservations int `json:"reservations"`
	Pax          int `json:"pax"`
}

func SumReservations(items []Reservation) ReservationTotals {
	t := ReservationTotals{Reservations: len(items)}
	for _, r := range items {
		t.Pax += r.Pax
	}
	return t
}

type SalesTotals struct {
	Count     int     `json:"count"`
	TotalBaht float64 `json:"totalBaht"`
}

// SumSales adds revenue in decimal so long bill histories do not drift.
func SumSales(items []Sale) SalesTotals {
	sum := decimal.Zero
	for _, s := range items {
		sum = sum.Add(decimal.NewFromFloat(s.TotalBaht))
	}
	return SalesTotals{Count: len(items), TotalBaht: sum.InexactFloat64()}
}
