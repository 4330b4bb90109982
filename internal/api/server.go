package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"pefund/internal/game"
	"pefund/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultCandidates = 3

// Server exposes one local session over HTTP. Every handler holds mu for the
// duration of its session access.
type Server struct {
	log   *slog.Logger
	store store.Store
	opts  game.Options
	mux   *chi.Mux

	mu      sync.Mutex
	session *game.Session
}

// New wires the routes. st may be nil, in which case the save routes answer
// 503. opts is reused when a saved slot is loaded.
func New(session *game.Session, st store.Store, opts game.Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:     logger,
		store:   st,
		opts:    opts,
		session: session,
		mux:     chi.NewRouter(),
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
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/market", s.handleMarket)
		r.Get("/deals", s.handleDeals)
		r.Post("/deals/{id}/negotiations", s.handleOpenAcquisition)

		r.Post("/negotiations/{id}/offer", s.handleOffer)
		r.Post("/negotiations/{id}/accept", s.handleAccept)
		r.Post("/negotiations/{id}/walk", s.handleWalk)

		r.Post("/companies/{id}/exit", s.handleOpenExit)
		r.Post("/companies/{id}/operations", s.handleOperation)
		r.Get("/companies/{id}/candidates", s.handleCandidates)
		r.Get("/companies/{id}/dcf", s.handleDCF)

		r.Post("/debt/take", s.handleTakeDebt)
		r.Post("/debt/repay", s.handleRepayDebt)

		r.Post("/quarters/advance", s.handleAdvance)

		r.Get("/saves", s.handleListSaves)
		r.Post("/saves/{slot}", s.handleSave)
		r.Post("/saves/{slot}/load", s.handleLoad)
	})
}

type holding struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Sector     string       `json:"sector"`
	Manager    game.Manager `json:"manager"`
	Metrics    game.Metrics `json:"metrics"`
	CostBasis  *float64     `json:"cost_basis,omitempty"`
	Quarters   int          `json:"quarters_held"`
	CanOperate bool         `json:"can_operate"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session
	p := sess.Player
	holdings := make([]holding, 0, len(p.Portfolio))
	for _, c := range p.Portfolio {
		holdings = append(holdings, holding{
			ID:         c.ID,
			Name:       c.Name,
			Sector:     c.Sector,
			Manager:    c.Manager,
			Metrics:    c.Metrics(),
			CostBasis:  c.AcquisitionPrice,
			Quarters:   c.HoldingQuarters(sess.Clock.Quarter),
			CanOperate: c.CanOperate(sess.Clock.Quarter),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clock":             sess.Clock,
		"label":             sess.Clock.String(),
		"game_over":         sess.Clock.GameOver(),
		"summary":           sess.Summary(),
		"debt_capacity":     p.DebtCapacity(),
		"available_capital": p.AvailableCapital(),
		"debt_utilization":  p.DebtUtilization(),
		"holdings":          holdings,
		"deal_history":      p.DealHistory,
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.session.Market
	writeJSON(w, http.StatusOK, map[string]any{
		"market":        m.State(),
		"sentiment":     m.Sentiment(),
		"discount_rate": m.DiscountRate(),
		"debt_rate":     m.DebtRate(),
	})
}

func (s *Server) handleDeals(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"deals": s.session.DealPool})
}

func (s *Server) handleOpenAcquisition(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.session.OpenAcquisition(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleOpenExit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.session.OpenExit(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Price float64 `json:"price"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.session.Offer(chi.URLParam(r, "id"), in.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.session.AcceptAsking(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWalk(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.session.WalkAway(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type operationRequest struct {
	Kind      game.OperationKind `json:"kind"`
	Intensity float64            `json:"intensity,omitempty"`
	Amount    float64            `json:"amount,omitempty"`
	Strategy  string             `json:"strategy,omitempty"`
	Candidate *int               `json:"candidate,omitempty"`
}

func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	var in operationRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res game.OperationResult
		err error
	)
	switch in.Kind {
	case game.OpCostCutting:
		res, err = s.session.CutCosts(id, in.Intensity)
	case game.OpCapitalInvestment:
		res, err = s.session.Invest(id, in.Amount)
	case game.OpReplaceManagement:
		if in.Candidate == nil {
			writeError(w, http.StatusBadRequest, "candidate is required")
			return
		}
		res, err = s.session.ReplaceManager(id, *in.Candidate)
	case game.OpGrowthStrategy:
		strategy, perr := game.ParseStrategy(in.Strategy)
		if perr != nil {
			writeDomainError(w, perr)
			return
		}
		res, err = s.session.PursueStrategy(id, strategy)
	default:
		writeError(w, http.StatusBadRequest, "unknown operation kind")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	n := defaultCandidates
	if raw := strings.TrimSpace(r.URL.Query().Get("n")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.session.ManagerCandidates(chi.URLParam(r, "id"), n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": out})
}

func (s *Server) handleDCF(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.session.DCF(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dcf_value": v})
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

func (s *Server) handleTakeDebt(w http.ResponseWriter, r *http.Request) {
	s.handleDebt(w, r, func(amount float64) error { return s.session.TakeDebt(amount) })
}

func (s *Server) handleRepayDebt(w http.ResponseWriter, r *http.Request) {
	s.handleDebt(w, r, func(amount float64) error { return s.session.RepayDebt(amount) })
}

func (s *Server) handleDebt(w http.ResponseWriter, r *http.Request, apply func(float64) error) {
	var in amountRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := apply(in.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	p := s.session.Player
	writeJSON(w, http.StatusOK, map[string]any{
		"cash":          p.Cash,
		"debt":          p.CurrentDebt,
		"debt_capacity": p.DebtCapacity(),
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Response game.Response `json:"response"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	var respond game.Responder
	switch in.Response {
	case "", game.ResponseMonitor:
	case game.ResponseImmediate:
		respond = func(game.Event) game.Response { return game.ResponseImmediate }
	default:
		writeError(w, http.StatusBadRequest, "response must be monitor or immediate")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.session.AdvanceQuarter(respond)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.log.Info("quarter advanced", "quarter", report.Quarter, "net_worth", report.NetWorthAfter, "game_over", report.GameOver)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListSaves(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no save store configured")
		return
	}
	list, err := s.store.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saves": list})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no save store configured")
		return
	}
	slot := chi.URLParam(r, "slot")

	s.mu.Lock()
	snap := store.Capture(s.session)
	s.mu.Unlock()

	if err := s.store.Save(r.Context(), slot, snap); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap.Meta(slot))
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no save store configured")
		return
	}
	slot := chi.URLParam(r, "slot")
	snap, err := s.store.Load(r.Context(), slot)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	restored, err := store.Restore(snap, s.opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.mu.Lock()
	s.session = restored
	s.mu.Unlock()

	s.log.Info("session loaded", "slot", slot, "quarter", snap.Clock.Quarter)
	writeJSON(w, http.StatusOK, snap.Meta(slot))
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrCompanyNotFound),
		errors.Is(err, game.ErrDealNotFound),
		errors.Is(err, store.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrDealClosed),
		errors.Is(err, game.ErrAlreadyOperated),
		errors.Is(err, game.ErrNegotiationOpen),
		errors.Is(err, game.ErrGameOver):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInvalidAmount),
		errors.Is(err, game.ErrInvalidIntensity),
		errors.Is(err, game.ErrUnknownStrategy),
		errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientDebt),
		errors.Is(err, game.ErrDebtCapacityExceeded),
		errors.Is(err, game.ErrNotAcquired),
		errors.Is(err, game.ErrUnknownCandidate),
		errors.Is(err, store.ErrInvalidSlot):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrUnsupportedVersion):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
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
