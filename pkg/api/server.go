package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"brokersim/pkg/core"
)

const sessionCookie = "session_id"

// thirty days, the reference UI's cookie lifetime
const sessionCookieMaxAge = 86400 * 30

// Server exposes the trading session over REST and WebSocket.
type Server struct {
	ts     *core.TradingSession
	symbol string
	router *mux.Router
	log    *zap.SugaredLogger

	corsOrigins []string
}

// NewServer wires the routes. Callers mount Handler() into an http.Server
// they own, so shutdown and exit codes stay in cmd.
func NewServer(ts *core.TradingSession, symbol string, corsOrigins []string, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		ts:          ts,
		symbol:      symbol,
		router:      mux.NewRouter(),
		log:         logger,
		corsOrigins: corsOrigins,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
	s.router.HandleFunc("/api/user", s.handleGetUser).Methods("GET")
	s.router.HandleFunc("/api/orderbook", s.handleGetOrderBook).Methods("GET")
	s.router.HandleFunc("/api/orders", s.handleGetOrders).Methods("GET")
	s.router.HandleFunc("/api/orders", s.handlePlaceOrder).Methods("POST")
	s.router.HandleFunc("/api/orders/{id}", s.handleCancelOrder).Methods("DELETE")
	s.router.HandleFunc("/api/orders/{id}", s.handleAmendOrder).Methods("PUT")
	s.router.HandleFunc("/api/trades", s.handleGetTrades).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Handler returns the CORS-wrapped root handler.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// session resolves the caller's cookie, minting a session (and setting the
// cookie) on first sight.
func (s *Server) session(w http.ResponseWriter, r *http.Request) core.ResolveResult {
	var token string
	if c, err := r.Cookie(sessionCookie); err == nil {
		token = c.Value
	}
	res := s.ts.Resolve(token)
	if res.Created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    res.SessionID,
			Path:     "/",
			MaxAge:   sessionCookieMaxAge,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return res
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "brokersim api",
		"status":  "running",
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	respondJSON(w, http.StatusOK, userInfoFrom(s.ts.GetUser(sess.AccountID)))
}

func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, orderBookInfoFrom(s.ts.GetBook()))
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	orders := s.ts.GetOrders(sess.AccountID)
	respondJSON(w, http.StatusOK, map[string]any{
		"orders": ordersInfoFrom(orders, s.symbol),
	})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	trades := s.ts.GetTrades(sess.AccountID)
	out := make([]TradeInfo, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeInfoFrom(t, sess.AccountID, s.symbol))
	}
	respondJSON(w, http.StatusOK, map[string]any{"trades": out})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	var body PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := s.orderRequest(body)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}

	result, err := s.ts.PlaceOrder(sess.AccountID, req)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PlaceOrderResponse{
		OrderID: result.Order.ID,
		Status:  result.Order.Status.String(),
		Fills:   len(result.Trades),
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	orderID := mux.Vars(r)["id"]

	cancelled, err := s.ts.CancelOrder(sess.AccountID, orderID)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, CancelOrderResponse{
		Status:  cancelled.Status.String(),
		OrderID: cancelled.ID,
	})
}

func (s *Server) handleAmendOrder(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	orderID := mux.Vars(r)["id"]

	var body AmendOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var priceCents, qtySats *int64
	if body.Price != nil {
		p, err := core.ParsePrice(*body.Price)
		if err != nil {
			s.respondCoreError(w, err)
			return
		}
		priceCents = &p
	}
	if body.Quantity != nil {
		q, err := core.ParseQty(*body.Quantity)
		if err != nil {
			s.respondCoreError(w, err)
			return
		}
		qtySats = &q
	}

	result, err := s.ts.AmendOrder(sess.AccountID, orderID, priceCents, qtySats)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, AmendOrderResponse{
		Status:        "amended",
		OrderID:       orderID,
		ReplacementID: result.Order.ID,
	})
}

// orderRequest converts the wire body into a core request, parsing the
// decimal fields exactly.
func (s *Server) orderRequest(body PlaceOrderRequest) (core.OrderRequest, error) {
	side, err := core.ParseSide(body.Side)
	if err != nil {
		return core.OrderRequest{}, err
	}
	kind, err := core.ParseKind(body.OrderType)
	if err != nil {
		return core.OrderRequest{}, err
	}
	qty, err := core.ParseQty(body.Quantity)
	if err != nil {
		return core.OrderRequest{}, err
	}

	req := core.OrderRequest{Side: side, Kind: kind, QtySats: qty}
	if kind == core.KindLimit {
		if body.Price == nil {
			return core.OrderRequest{}, fmt.Errorf("%w: limit orders require a price", core.ErrValidation)
		}
		price, err := core.ParsePrice(*body.Price)
		if err != nil {
			return core.OrderRequest{}, err
		}
		req.PriceCents = price
	}
	return req, nil
}

func (s *Server) respondCoreError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrNotCancellable), errors.Is(err, core.ErrNotAmendable):
		status = http.StatusConflict
	case errors.Is(err, core.ErrEngineHalted):
		status = http.StatusInternalServerError
		s.log.Errorw("request_rejected_engine_halted")
	}
	respondError(w, status, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
