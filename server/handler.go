package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/alimasry/go-pos-sync/metrics"
	"github.com/alimasry/go-pos-sync/store"
)

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins []string
	StaticDirs     []string
	BodyLimit      int64

	// RelayRate and RelayBurst bound how many relay events one client may
	// push per second.
	RelayRate  float64
	RelayBurst int
}

// Handler serves the REST API, the change bus endpoint and static files.
type Handler struct {
	store   *store.Store
	hub     *Hub
	metrics *metrics.Metrics
	opts    Options
	log     *slog.Logger
	now     func() time.Time

	mux      *http.ServeMux
	upgrader websocket.Upgrader
}

// NewHandler creates the HTTP handler with all routes.
func NewHandler(st *store.Store, hub *Hub, m *metrics.Metrics, opts Options, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		store:   st,
		hub:     hub,
		metrics: m,
		opts:    opts,
		log:     log,
		now:     time.Now,
		mux:     http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return originAllowed(opts.AllowedOrigins, r.Header.Get("Origin")) },
		},
	}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.cors(h.mux).ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /api/status", h.status)

	h.mux.HandleFunc("GET /api/pos-state", h.getState)
	h.mux.HandleFunc("PUT /api/pos-state", h.putState)
	h.mux.HandleFunc("GET /api/exchange-rates", h.getRates)
	h.mux.HandleFunc("PUT /api/exchange-rates", h.putRates)

	mountCollection(h, h.store.Customers(), nil)
	mountCollection(h, h.store.Companies(), nil)
	mountCollection(h, h.store.Menu(), nil)
	mountCollection(h, h.store.Bookings(), bookingsQuery)
	mountCollection(h, h.store.Reservations(), reservationsQuery)

	h.mux.HandleFunc("GET /api/sales", h.listSales)
	h.mux.HandleFunc("POST /api/sales", h.createSale)
	h.mux.HandleFunc("GET /api/sales/{id}", h.getSale)

	// WebSocket endpoint.
	h.mux.HandleFunc("GET /ws", h.serveWS)
	h.mux.Handle("GET /metrics", h.metrics.Handler())

	h.mux.Handle("GET /", staticFiles(h.opts.StaticDirs))
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade error", "error", err)
		return
	}
	var limiter *rate.Limiter
	if h.opts.RelayRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.opts.RelayRate), h.opts.RelayBurst)
	}
	client := newClient(h.hub, conn, limiter)
	h.hub.register(client)
	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ts": store.Timestamp(h.now())})
}

// ---------- middleware ----------

// originAllowed reports whether origin may call the API. An empty list
// allows every origin, as does a "*" entry.
func originAllowed(allowed []string, origin string) bool {
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (h *Handler) cors(next http.Handler) http.Handler {
	allowAll := len(h.opts.AllowedOrigins) == 0 ||
		(len(h.opts.AllowedOrigins) == 1 && h.opts.AllowedOrigins[0] == "*")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowAll {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" && originAllowed(h.opts.AllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-POS-Client")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// staticFiles serves from the first directory holding the requested path.
// HTML is never cached so clients pick up a new UI right after a deploy.
func staticFiles(dirs []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		for _, dir := range dirs {
			fsys := http.Dir(dir)
			target, ok := resolve(fsys, name)
			if !ok {
				continue
			}
			if strings.HasSuffix(strings.ToLower(target), ".html") {
				w.Header().Set("Cache-Control", "no-store")
				w.Header().Set("Pragma", "no-cache")
				w.Header().Set("Expires", "0")
			}
			http.FileServer(fsys).ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// resolve returns the file that would be served for name, following a
// directory to its index.html. Directories without one are not served.
func resolve(fsys http.FileSystem, name string) (string, bool) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", false
	}
	st, err := f.Stat()
	f.Close()
	if err != nil {
		return "", false
	}
	if !st.IsDir() {
		return name, true
	}
	index := path.Join(name, "index.html")
	f, err = fsys.Open(index)
	if err != nil {
		return "", false
	}
	f.Close()
	return index, true
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
