package store

import (
	"context"
	"time"
)

// collectionDef describes one record shape: where it lives in the
// document, how ids are namespaced, and how client fields become a record.
type collectionDef[R any] struct {
	name   string
	prefix string
	slot   func(*Document) *[]R
	id     func(R) string
	create func(id string, f Fields, now time.Time) (R, error)
	update func(cur R, f Fields) (R, error)
}

// Collection gives typed access to one named collection of the document.
type Collection[R any] struct {
	store *Store
	def   *collectionDef[R]
}

// Name is the collection's key in the document, also used as its bus topic.
func (c *Collection[R]) Name() string { return c.def.name }

func (c *Collection[R]) indexOf(items []R, id string) int {
	for i, r := range items {
		if c.def.id(r) == id {
			return i
		}
	}
	return -1
}

func (c *Collection[R]) notFound(id string) error {
	return &NotFoundError{Collection: c.def.name, ID: id}
}

// List returns the records keep accepts, in insertion order. A nil keep
// returns everything.
func (c *Collection[R]) List(ctx context.Context, keep func(R) bool) ([]R, error) {
	out := []R{}
	err := c.store.view(ctx, func(doc *Document) error {
		for _, r := range *c.def.slot(doc) {
			if keep == nil || keep(r) {
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Collection[R]) Get(ctx context.Context, id string) (R, error) {
	var found R
	err := c.store.view(ctx, func(doc *Document) error {
		items := *c.def.slot(doc)
		i := c.indexOf(items, id)
		if i < 0 {
			return c.notFound(id)
		}
		found = items[i]
		return nil
	})
	return found, err
}

// Create validates f, assigns a fresh id and appends the new record.
func (c *Collection[R]) Create(ctx context.Context, f Fields) (R, error) {
	var created R
	err := c.store.mutate(ctx, func(doc *Document) error {
		r, err := c.def.create(c.store.newID(c.def.prefix), f, c.store.now())
		if err != nil {
			return err
		}
		items := c.def.slot(doc)
		if c.indexOf(*items, c.def.id(r)) >= 0 {
			return invalid("id", "already exists")
		}
		*items = append(*items, r)
		created = r
		return nil
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return created, nil
}

// Update overwrites the fields present in f on a copy of the record and
// stores the copy in the same slot. Keys absent from f are left untouched.
func (c *Collection[R]) Update(ctx context.Context, id string, f Fields) (R, error) {
	var updated R
	err := c.store.mutate(ctx, func(doc *Document) error {
		items := *c.def.slot(doc)
		i := c.indexOf(items, id)
		if i < 0 {
			return c.notFound(id)
		}
		r, err := c.def.update(items[i], f)
		if err != nil {
			return err
		}
		items[i] = r
		updated = r
		return nil
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return updated, nil
}

// Delete removes the record and returns it.
func (c *Collection[R]) Delete(ctx context.Context, id string) (R, error) {
	var removed R
	err := c.store.mutate(ctx, func(doc *Document) error {
		items := c.def.slot(doc)
		i := c.indexOf(*items, id)
		if i < 0 {
			return c.notFound(id)
		}
		removed = (*items)[i]
		*items = append((*items)[:i], (*items)[i+1:]...)
		return nil
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return removed, nil
}

func (s *Store) Customers() *Collection[Customer] {
	return &Collection[Customer]{store: s, def: &customerDef}
}

func (s *Store) Companies() *Collection[Company] {
	return &Collection[Company]{store: s, def: &companyDef}
}

func (s *Store) Menu() *Collection[MenuItem] {
	return &Collection[MenuItem]{store: s, def: &menuDef}
}

func (s *Store) Bookings() *Collection[Booking] {
	return &Collection[Booking]{store: s, def: &bookingDef}
}

func (s *Store) Reservations() *Collection[Reservation] {
	return &Collection[Reservation]{store: s, def: &reservationDef}
}

var customerDef = collectionDef[Customer]{
	name:   keyCustomers,
	prefix: "cust",
	slot:   func(d *Document) *[]Customer { return &d.Customers },
	id:     func(c Customer) string { return c.ID },
	create: func(id string, f Fields, _ time.Time) (Customer, error) {
		name, err := required(f, "name")
		if err != nil {
			return Customer{}, err
		}
		c := Customer{ID: id, Name: name}
		err = apply(f, str("phone", &c.Phone), str("email", &c.Email), str("notes", &c.Notes))
		return c, err
	},
	update: func(c Customer, f Fields) (Customer, error) {
		err := apply(f, str("name", &c.Name), str("phone", &c.Phone), str("email", &c.Email), str("notes", &c.Notes))
		return c, err
	},
}

var companyDef = collectionDef[Company]{
	name:   keyCompanies,
	prefix: "comp",
	slot:   func(d *Document) *[]Company { return &d.Companies },
	id:     func(c Company) string { return c.ID },
	create: func(id string, f Fields, _ time.Time) (Company, error) {
		name, err := required(f, "name")
		if err != nil {
			return Company{}, err
		}
		c := Company{ID: id, Name: name}
		err = apply(f, companyFields(&c)[1:]...)
		return c, err
	},
	update: func(c Company, f Fields) (Company, error) {
		err := apply(f, companyFields(&c)...)
		return c, err
	},
}

func companyFields(c *Company) []fieldSetter {
	return []fieldSetter{
		str("name", &c.Name),
		str("taxId", &c.TaxID),
		str("address", &c.Address),
		str("phone", &c.Phone),
		str("contact", &c.Contact),
	}
}

var menuDef = collectionDef[MenuItem]{
	name:   keyMenu,
	prefix: "menu",
	slot:   func(d *Document) *[]MenuItem { return &d.Menu },
	id:     func(m MenuItem) string { return m.ID },
	create: func(id string, f Fields, _ time.Time) (MenuItem, error) {
		name, err := required(f, "name")
		if err != nil {
			return MenuItem{}, err
		}
		m := MenuItem{ID: id, Name: name}
		err = apply(f, num("price", &m.Price), str("category", &m.Category), str("description", &m.Description))
		return m, err
	},
	update: func(m MenuItem, f Fields) (MenuItem, error) {
		err := apply(f, str("name", &m.Name), num("price", &m.Price), str("category", &m.Category), str("description", &m.Description))
		return m, err
	},
}

var bookingDef = collectionDef[Booking]{
	name:   keyBookings,
	prefix: "book",
	slot:   func(d *Document) *[]Booking { return &d.Bookings },
	id:     func(b Booking) string { return b.ID },
	create: func(id string, f Fields, _ time.Time) (Booking, error) {
		customer, err := required(f, "customerName")
		if err != nil {
			return Booking{}, err
		}
		date, err := required(f, "date")
		if err != nil {
			return Booking{}, err
		}
		b := Booking{ID: id, CustomerName: customer, Date: date}
		err = apply(f, str("table", &b.Table), str("time", &b.Time), integer("partySize", &b.PartySize), str("notes", &b.Notes))
		return b, err
	},
	update: func(b Booking, f Fields) (Booking, error) {
		err := apply(f,
			str("customerName", &b.CustomerName),
			str("table", &b.Table),
			str("date", &b.Date),
			str("time", &b.Time),
			integer("partySize", &b.PartySize),
			str("notes", &b.Notes),
		)
		return b, err
	},
}

var reservationDef = collectionDef[Reservation]{
	name:   keyReservations,
	prefix: "resv",
	slot:   func(d *Document) *[]Reservation { return &d.Reservations },
	id:     func(r Reservation) string { return r.ID },
	create: func(id string, f Fields, now time.Time) (Reservation, error) {
		date, err := required(f, "date")
		if err != nil {
			return Reservation{}, err
		}
		customer, err := required(f, "customerName")
		if err != nil {
			return Reservation{}, err
		}
		r := Reservation{ID: id, Date: date, CustomerName: customer, CreatedAt: Timestamp(now)}
		err = apply(f, reservationFields(&r)...)
		return r, err
	},
	update: func(r Reservation, f Fields) (Reservation, error) {
		err := apply(f, append(reservationFields(&r),
			str("date", &r.Date),
			str("customerName", &r.CustomerName),
		)...)
		return r, err
	},
}

func reservationFields(r *Reservation) []fieldSetter {
	return []fieldSetter{
		str("time", &r.Time),
		str("table", &r.Table),
		str("phone", &r.Phone),
		str("companyName", &r.CompanyName),
		integer("pax", &r.Pax),
		str("menu", &r.Menu),
		str("notes", &r.Notes),
	}
}
