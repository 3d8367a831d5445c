package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// TimestampLayout matches the millisecond UTC timestamps clients already
// store (2024-01-15T09:30:00.000Z).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t in TimestampLayout, in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NewID returns a collision-resistant identifier in the namespace of prefix.
func NewID(prefix string) string {
	return prefix + "_" + strings.ToLower(ulid.Make().String())
}

// Each record type keeps the keys it does not know about in Extra so that a
// load/save cycle never drops data written by a newer build.

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`

	Extra map[string]json.RawMessage `json:"-"`
}

var customerKeys = []string{"id", "name", "phone", "email", "notes"}

func (c Customer) MarshalJSON() ([]byte, error) {
	type plain Customer
	return marshalWithExtra(plain(c), c.Extra)
}

func (c *Customer) UnmarshalJSON(data []byte) error {
	f, err := DecodeFields(data)
	if err != nil {
		return err
	}
	*c = Customer{
		ID:    f.text("id"),
		Name:  f.text("name"),
		Phone: f.text("phone"),
		Email: f.text("email"),
		Notes: f.text("notes"),
		Extra: f.rest(customerKeys),
	}
	return nil
}

type Company struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TaxID   string `json:"taxId"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Contact string `json:"contact"`

	Extra map[string]json.RawMessage `json:"-"`
}

var companyKeys = []string{"id", "name", "taxId", "address", "phone", "contact"}

func (c Company) MarshalJSON() ([]byte, error) {
	type plain Company
	return marshalWithExtra(plain(c), c.Extra)
}

func (c *Company) UnmarshalJSON(data []byte) error {
	f, err := DecodeFields(data)
	if err != nil {
		return err
	}
	*c = Company{
		ID:      f.text("id"),
		Name:    f.text("name"),
		TaxID:   f.text("taxId"),
		Address: f.text("address"),
		Phone:   f.text("phone"),
		Contact: f.text("contact"),
		Extra:   f.rest(companyKeys),
	}
	return nil
}

type MenuItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Description string  `json:"description"`

	Extra map[string]json.RawMessage `json:"-"`
}

var menuKeys = []string{"id", "name", "price", "category", "description"}

func (m MenuItem) MarshalJSON() ([]byte, error) {
	type plain MenuItem
	return marshalWithExtra(plain(m), m.Extra)
}

func (m *MenuItem) UnmarshalJSON(data []byte) error {
	f, err := DecodeFields(data)
	if err != nil {
		return err
	}
	*m = MenuItem{
		ID:          f.text("id"),
		Name:        f.text("name"),
		Price:       f.number("price"),
		Category:    f.text("category"),
		Description: f.text("description"),
		Extra:       f.rest(menuKeys),
	}
	return nil
}

type Booking struct {
	ID           string `json:"id"`
	CustomerName string `json:"customerName"`
	Table        string `json:"table"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	PartySize    int    `json:"partySize"`
	Notes        string `json:"notes"`

	Extra map[string]json.RawMessage `json:"-"`
}

var bookingKeys = []string{"id", "customerName", "table", "date", "time", "partySize", "notes"}

func (b Booking) MarshalJSON() ([]byte, error) {
	type plain Booking
	return marshalWithExtra(plain(b), b.Extra)
}

func (b *Booking) UnmarshalJSON(data []byte) error {
	f, err := DecodeFields(data)
	if err != nil {
		return err
	}
	*b = Booking{
		ID:           f.text("id"),
		CustomerName: f.text("customerName"),
		Table:        f.text("table"),
		Date:         f.text("date"),
		Time:         f.text("time"),
		PartySize:    f.whole("partySize"),
		Notes:        f.text("notes"),
		Extra:        f.rest(bookingKeys),
	}
	return nil
}

type Reservation struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Table        string `json:"table"`
	CustomerName string `json:"customerName"`
	Phone        string `json:"phone"`
	CompanyName  string `json:"companyName"`
	Pax          int    `json:"pax"`
	Menu         string `json:"menu"`
	Notes        string `json:"notes"`
	CreatedAt    string `json:"createdAt"`

	Extra map[string]json.RawMessage `json:"-"`
}

var reservationKeys = []string{
	"id", "date", "time", "table", "customerName", "phone",
	"companyName", "pax", "menu", "notes", "createdAt",
}

func (r Reservation) MarshalJSON() ([]byte, error) {
	type plain Reservation
	return marshalWithExtra(plain(r), r.Extra)
}

func (r *Reservation) UnmarshalJSON(data []byte) error {
	f, err := DecodeFields(data)
	if err != nil {
		return err
	}
	*r = Reservation{
		ID:           f.text("id"),
		Date:         f.text("date"),
		Time:         f.text("time"),
		Table:        f.text("table"),
		CustomerName: f.text("customerName"),
		Phone:        f.text("phone"),
		CompanyName:  f.text("companyName"),
		Pax:          f.whole("pax"),
		Menu:         f.text("menu"),
		Notes:        f.text("notes"),
		CreatedAt:    f.text("createdAt"),
		Extra:        f.rest(reservationKeys),
	}
	return nil
}

// Sale is one closed bill. Everything the client sent beyond the four
// fields below (line items, payments, table...) is kept in Extra.
type Sale struct {
	ID           string  `json:"id"`
	BusinessDate string  `json:"businessDate"`
	CreatedAt    string  `json:"createdAt"`
	TotalBaht    float64 `json:"totalBaht"`

	Extra map[string]json.RawMessage `json:"-"`
}

var saleKeys = []string{"id", "businessDate", "createdAt", "totalBaht"}

func (s Sale) MarshalJSON() ([]byte, error) {
	type plain Sale
	return marshalWithExtra(plain(s), s.Extra)
}

func (s *Sale) UnmarshalJSON(data []byte) error {
	f, err := DecodeFields(data)
	if err != nil {
		return err
	}
	*s = Sale{
		ID:           f.text("id"),
		BusinessDate: f.text("businessDate"),
		CreatedAt:    f.text("createdAt"),
		TotalBaht:    f.number("totalBaht"),
		Extra:        f.rest(saleKeys),
	}
	return nil
}

// SaleSummary is the slim form of a sale broadcast to clients.
type SaleSummary struct {
	ID           string  `json:"id"`
	BusinessDate string  `json:"businessDate"`
	CreatedAt    string  `json:"createdAt"`
	TotalBaht    float64 `json:"totalBaht"`
}

func (s Sale) Summary() SaleSummary {
	return SaleSummary{ID: s.ID, BusinessDate: s.BusinessDate, CreatedAt: s.CreatedAt, TotalBaht: s.TotalBaht}
}

// Rates are THB conversion factors.
type Rates struct {
	USD float64 `json:"usd"`
	KRW float64 `json:"krw"`

	Extra map[string]json.RawMessage `json:"-"`
}

const (
	DefaultUSDRate = 0.029
	DefaultKRWRate = 39.5
)

var rateKeys = []string{"usd", "krw"}

func DefaultRates() Rates {
	return Rates{USD: DefaultUSDRate, KRW: DefaultKRWRate}
}

func (r Rates) MarshalJSON() ([]byte, error) {
	type plain Rates
	return marshalWithExtra(plain(r), r.Extra)
}

// UnmarshalJSON backfills missing or unusable fields from the defaults.
func (r *Rates) UnmarshalJSON(data []byte) error {
	f, err := DecodeFields(data)
	if err != nil {
		return err
	}
	*r = DefaultRates()
	if v, ok, err := f.Float("usd"); ok && err == nil {
		r.USD = v
	}
	if v, ok, err := f.Float("krw"); ok && err == nil {
		r.KRW = v
	}
	r.Extra = f.rest(rateKeys)
	return nil
}

func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return b, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, known := m[k]; !known {
			m[k] = raw
		}
	}
	return json.Marshal(m)
}
