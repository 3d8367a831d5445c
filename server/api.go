package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/alimasry/go-pos-sync/store"
)

const (
	defaultBodyLimit = 2 << 20

	// ClientHeader carries the id a browser tab uses to recognize the echo
	// of its own posState writes.
	ClientHeader = "X-POS-Client"
)

// Mutation actions carried in change payloads.
const (
	actionCreate = "create"
	actionUpdate = "update"
	actionDelete = "delete"
	actionMerge  = "merge"
)

// listView picks the records a collection GET returns and the totals
// reported alongside them.
type listView[R any] struct {
	filter func(*http.Request) func(R) bool
	totals func([]R) any
}

var bookingsQuery = &listView[store.Booking]{
	filter: func(r *http.Request) func(store.Booking) bool {
		return store.BookingsOn(strings.TrimSpace(r.URL.Query().Get("date")))
	},
	totals: func(items []store.Booking) any { return store.SumBookings(items) },
}

var reservationsQuery = &listView[store.Reservation]{
	filter: func(r *http.Request) func(store.Reservation) bool {
		return store.ReservationsOn(strings.TrimSpace(r.URL.Query().Get("date")))
	},
	totals: func(items []store.Reservation) any { return store.SumReservations(items) },
}

// mountCollection registers list, create, get, update and delete routes
// for one collection under /api/<name>.
func mountCollection[R any](h *Handler, c *store.Collection[R], view *listView[R]) {
	base := "/api/" + c.Name()

	h.mux.HandleFunc("GET "+base, func(w http.ResponseWriter, r *http.Request) {
		var keep func(R) bool
		if view != nil && view.filter != nil {
			keep = view.filter(r)
		}
		items, err := c.List(r.Context(), keep)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		resp := map[string]any{"items": items}
		if view != nil && view.totals != nil {
			resp["totals"] = view.totals(items)
		}
		writeJSON(w, http.StatusOK, resp)
	})

	h.mux.HandleFunc("POST "+base, func(w http.ResponseWriter, r *http.Request) {
		f, ok := h.readFields(w, r)
		if !ok {
			return
		}
		item, err := c.Create(r.Context(), f)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		h.changed(c.Name(), actionCreate, Change{Action: actionCreate, Item: item})
		writeJSON(w, http.StatusCreated, item)
	})

	h.mux.HandleFunc("GET "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		item, err := c.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	})

	h.mux.HandleFunc("PUT "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		f, ok := h.readFields(w, r)
		if !ok {
			return
		}
		item, err := c.Update(r.Context(), r.PathValue("id"), f)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		h.changed(c.Name(), actionUpdate, Change{Action: actionUpdate, Item: item})
		writeJSON(w, http.StatusOK, item)
	})

	h.mux.HandleFunc("DELETE "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		item, err := c.Delete(r.Context(), r.PathValue("id"))
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		h.changed(c.Name(), actionDelete, Change{Action: actionDelete, Item: item})
		writeJSON(w, http.StatusOK, item)
	})
}

// ---------- sales ----------

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.store.Sales().List(r.Context(), store.ParseDateRange(q.Get("from"), q.Get("to")))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "totals": store.SumSales(items)})
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.store.Sales().Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

// createSale stores the full bill but broadcasts only its summary; line
// items can be large and no client needs them live.
func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	f, ok := h.readFields(w, r)
	if !ok {
		return
	}
	sales := h.store.Sales()
	sale, err := sales.Create(r.Context(), f)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.changed(sales.Name(), actionCreate, Change{Action: actionCreate, Item: sale.Summary()})
	writeJSON(w, http.StatusCreated, sale)
}

// ---------- pos state ----------

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	state, err := h.store.State(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (h *Handler) putState(w http.ResponseWriter, r *http.Request) {
	f, ok := h.readFields(w, r)
	if !ok {
		return
	}
	var partial map[string]json.RawMessage
	if !f.Has("state") || json.Unmarshal(f["state"], &partial) != nil {
		writeError(w, http.StatusBadRequest, "state must be an object")
		return
	}

	state, err := h.store.MergeState(r.Context(), partial)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	var clientID *string
	if id := strings.TrimSpace(r.Header.Get(ClientHeader)); id != "" {
		clientID = &id
	}
	h.changed("posState", actionMerge, StateChange{
		Action:   actionMerge,
		Keys:     slices.Sorted(maps.Keys(partial)),
		ClientID: clientID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

// ---------- exchange rates ----------

func (h *Handler) getRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.store.Rates(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rates": rates})
}

func (h *Handler) putRates(w http.ResponseWriter, r *http.Request) {
	f, ok := h.readFields(w, r)
	if !ok {
		return
	}
	rates, err := h.store.SetRates(r.Context(), f)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.changed("exchangeRates", actionUpdate, rates)
	writeJSON(w, http.StatusOK, map[string]any{"rates": rates})
}

// ---------- plumbing ----------

// changed records and publishes one successful mutation.
func (h *Handler) changed(topic, action string, payload any) {
	h.metrics.Mutations.WithLabelValues(topic, action).Inc()
	h.hub.Publish(topic, payload)
}

// readFields decodes the request body as a JSON object. An empty body reads
// as an empty object.
func (h *Handler) readFields(w http.ResponseWriter, r *http.Request) (store.Fields, bool) {
	limit := h.opts.BodyLimit
	if limit <= 0 {
		limit = defaultBodyLimit
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "failed to read request body")
		}
		return nil, false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return store.Fields{}, true
	}
	f, err := store.DecodeFields(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return f, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	var invalid *store.ValidationError
	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		h.log.Error("store operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
