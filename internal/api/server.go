package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"wealthlings/internal/config"
	"wealthlings/internal/game"
	"wealthlings/internal/snapshot"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const maxScanUpload = 10 << 20

type Server struct {
	cfg       config.APIConfig
	log       *slog.Logger
	hub       *game.Hub
	snapshots snapshot.Store
	mux       *chi.Mux
}

// New wires the HTTP routes. snapshots may be nil, in which case sessions
// live only as long as the process.
func New(cfg config.APIConfig, logger *slog.Logger, hub *game.Hub, snapshots snapshot.Store) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		log:       logger,
		hub:       hub,
		snapshots: snapshots,
		mux:       chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.hub.Len()})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/archetypes", s.handleArchetypes)
		r.Get("/store/items", s.handleStoreItems)

		r.Post("/sessions", s.handleOpenSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(s.sessionMiddleware)
			r.Get("/", s.handleSessionView)
			r.Delete("/", s.handleCloseSession)
			r.Post("/heal", s.handleHeal)
			r.Post("/feed", s.handleFeed)
			r.Post("/purchase", s.handlePurchase)
			r.Post("/scan", s.handleScan)
			r.Post("/creatures/{creature_id}/sell", s.handleSell)
		})
	})
}

type contextKey string

const sessionContextKey contextKey = "session"

func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.hub.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) *game.Session {
	sess, _ := ctx.Value(sessionContextKey).(*game.Session)
	return sess
}

func (s *Server) handleArchetypes(w http.ResponseWriter, _ *http.Request) {
	out := make([]game.ArchetypeInfo, 0, len(game.Archetypes))
	for _, a := range game.Archetypes {
		out = append(out, a.Info())
	}
	writeJSON(w, http.StatusOK, map[string]any{"archetypes": out})
}

func (s *Server) handleStoreItems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": game.Catalog})
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ID     string `json:"id"`
		Resume bool   `json:"resume"`
	}
	if err := decodeJSON(r, &in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if sess, err := s.hub.Get(id); err == nil {
		writeJSON(w, http.StatusOK, sess.View())
		return
	}

	st := game.SeedState(time.Now())
	resumed := false
	if in.Resume && s.snapshots != nil {
		saved, err := s.snapshots.Load(r.Context(), id)
		switch {
		case err == nil:
			st = saved
			resumed = true
		case errors.Is(err, snapshot.ErrNotFound):
		default:
			s.log.Error("snapshot load failed", "session_id", id, "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	sess := s.hub.Open(id, st)
	s.log.Info("session started", "session_id", id, "resumed", resumed)
	writeJSON(w, http.StatusCreated, sess.View())
}

func (s *Server) handleSessionView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFromContext(r.Context()).View())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := sessionFromContext(r.Context()).ID
	st, err := s.hub.Close(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	saved := false
	if s.snapshots != nil {
		if err := s.snapshots.Save(r.Context(), id, st); err != nil {
			s.log.Error("snapshot save failed", "session_id", id, "err", err)
		} else {
			saved = true
		}
	}
	view := game.NewView(st)
	view.SessionID = id
	writeJSON(w, http.StatusOK, map[string]any{"session": view, "saved": saved})
}

func (s *Server) handleHeal(w http.ResponseWriter, r *http.Request) {
	s.handleCreatureAction(w, r, (*game.Session).Heal)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	s.handleCreatureAction(w, r, (*game.Session).Feed)
}

func (s *Server) handleCreatureAction(w http.ResponseWriter, r *http.Request, action func(*game.Session, string) (game.Creature, error)) {
	sess := sessionFromContext(r.Context())
	var in struct {
		CreatureID string `json:"creature_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var out game.Creature
	err := sess.Once(idempotencyKey(r), func() error {
		var err error
		out, err = action(sess, strings.TrimSpace(in.CreatureID))
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"creature": out, "inventory": sess.Store().Inventory()})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	var in struct {
		Kind string `json:"kind"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var inv game.Inventory
	err := sess.Once(idempotencyKey(r), func() error {
		var err error
		inv, err = sess.Purchase(in.Kind)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inventory": inv, "coins": sess.Store().Coins()})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	req := game.ScanRequest{UserID: sess.ID}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxScanUpload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if f, hdr, err := r.FormFile("image"); err == nil {
			defer f.Close()
			req.Image = f
			req.Filename = hdr.Filename
		}
		if uid := strings.TrimSpace(r.FormValue("user_id")); uid != "" {
			req.UserID = uid
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.backendTimeout())
	defer cancel()
	var out game.Creature
	err := sess.Once(idempotencyKey(r), func() error {
		var err error
		out, err = sess.Scan(ctx, req)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"creature": out})
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	creatureID := chi.URLParam(r, "creature_id")

	ctx, cancel := context.WithTimeout(r.Context(), s.backendTimeout())
	defer cancel()
	var out game.SellResult
	err := sess.Once(idempotencyKey(r), func() error {
		var err error
		out, err = sess.Sell(ctx, creatureID)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) backendTimeout() time.Duration {
	if s.cfg.BackendTimeout <= 0 {
		return 20 * time.Second
	}
	return s.cfg.BackendTimeout
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrDuplicateIdempotency), errors.Is(err, game.ErrDuplicateCreature):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrNoPotions),
		errors.Is(err, game.ErrNoSnacks),
		errors.Is(err, game.ErrUnknownItem),
		errors.Is(err, game.ErrInvalidCreature):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrCreatureNotFound), errors.Is(err, game.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, game.ErrScanFailed), errors.Is(err, game.ErrInvalidValuation):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}
