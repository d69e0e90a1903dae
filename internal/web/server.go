package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/elys-network/ilshield/internal/analyzer"
	"github.com/elys-network/ilshield/internal/engine"
	"github.com/elys-network/ilshield/internal/insurer"
	"github.com/elys-network/ilshield/internal/logger"
	"github.com/elys-network/ilshield/internal/state"
	"github.com/elys-network/ilshield/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the insurance operations over HTTP
type WebServer struct {
	router  *mux.Router
	port    string
	insurer *insurer.Insurer
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, ins *insurer.Insurer) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:  mux.NewRouter(),
		port:    port,
		insurer: ins,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/policy", ws.handleGetPolicy).Methods("GET")
	api.HandleFunc("/policy", ws.handleInitializePolicy).Methods("POST")
	api.HandleFunc("/policy", ws.handleUpdatePolicy).Methods("PUT")
	api.HandleFunc("/pool", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/pool", ws.handleSetPool).Methods("PUT")
	api.HandleFunc("/prices", ws.handleGetPrices).Methods("GET")
	api.HandleFunc("/prices", ws.handleSetPrices).Methods("PUT")
	api.HandleFunc("/positions/{address}", ws.handleUpsertPosition).Methods("PUT")
	api.HandleFunc("/positions/{address}", ws.handleGetPosition).Methods("GET")
	api.HandleFunc("/positions/{address}/valuation", ws.handleGetValuation).Methods("GET")
	api.HandleFunc("/positions/{address}/il", ws.handleGetIL).Methods("GET")
	api.HandleFunc("/positions/{address}/payout", ws.handleGetPayout).Methods("GET")
	api.HandleFunc("/positions/{address}/history", ws.handleGetHistory).Methods("GET")
	api.HandleFunc("/positions/{address}/claim", ws.handleClaim).Methods("POST")
	api.HandleFunc("/positions/{address}/claims", ws.handleGetClaimsByAddress).Methods("GET")
	api.HandleFunc("/claims", ws.handleGetRecentClaims).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	_, _, poolErr := ws.insurer.PoolState()

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "ilshield-insurance-engine",
			"version": "1.0.0",
		},
		"insurer_status": map[string]interface{}{
			"database_healthy":   dbHealthy,
			"policy_initialized": ws.insurer.Initialized(),
			"pool_synced":        poolErr == nil,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPolicy returns the active coverage policy
func (ws *WebServer) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := ws.insurer.Policy()
	if err != nil {
		ws.writeEngineError(w, err, "Failed to retrieve policy")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, policy)
}

// handleInitializePolicy installs the one-time coverage policy
func (ws *WebServer) handleInitializePolicy(w http.ResponseWriter, r *http.Request) {
	var policy types.Policy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid policy payload")
		return
	}

	if err := ws.insurer.InitializePolicy(policy); err != nil {
		ws.writeEngineError(w, err, "Failed to initialize policy")
		return
	}

	ws.writeJSONResponse(w, http.StatusCreated, policy)
}

// handleUpdatePolicy replaces the active coverage policy
func (ws *WebServer) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var policy types.Policy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid policy payload")
		return
	}

	if err := ws.insurer.UpdatePolicy(policy); err != nil {
		ws.writeEngineError(w, err, "Failed to update policy")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, policy)
}

// handleGetPool returns the cached pool state
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	pool, _, err := ws.insurer.PoolState()
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "No pool snapshot available yet")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, pool)
}

// handleSetPool manually overrides the pool state
func (ws *WebServer) handleSetPool(w http.ResponseWriter, r *http.Request) {
	var pool types.PoolState
	if err := json.NewDecoder(r.Body).Decode(&pool); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid pool payload")
		return
	}

	if err := ws.insurer.SetPoolState(pool); err != nil {
		webLogger.Error().Err(err).Msg("Failed to set pool state")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to set pool state")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, pool)
}

// handleGetPrices returns the cached oracle prices
func (ws *WebServer) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	_, prices, err := ws.insurer.PoolState()
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "No price snapshot available yet")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, prices)
}

// handleSetPrices manually overrides the oracle prices
func (ws *WebServer) handleSetPrices(w http.ResponseWriter, r *http.Request) {
	var prices types.OraclePrices
	if err := json.NewDecoder(r.Body).Decode(&prices); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid prices payload")
		return
	}

	if err := ws.insurer.SetPrices(prices); err != nil {
		webLogger.Error().Err(err).Msg("Failed to set prices")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to set prices")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, prices)
}

// handleUpsertPosition registers or updates an insured position
func (ws *WebServer) handleUpsertPosition(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	var position types.UserPosition
	if err := json.NewDecoder(r.Body).Decode(&position); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid position payload")
		return
	}
	position.Address = address

	if err := ws.insurer.UpsertPosition(position); err != nil {
		webLogger.Error().Err(err).Str("address", address).Msg("Failed to upsert position")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to upsert position")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, position)
}

// handleGetPosition returns the insured position for an address
func (ws *WebServer) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	position, err := ws.insurer.GetPosition(address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			ws.writeErrorResponse(w, http.StatusNotFound, "Position not found")
			return
		}
		webLogger.Error().Err(err).Str("address", address).Msg("Failed to get position")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve position")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, position)
}

// handleGetValuation returns the full valuation for an address
func (ws *WebServer) handleGetValuation(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	valuation, err := ws.insurer.GetValuation(address)
	if err != nil {
		ws.writeEngineError(w, err, "Failed to compute valuation")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, valuation)
}

// handleGetIL returns the impermanent-loss fraction for an address
func (ws *WebServer) handleGetIL(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	valuation, ilFraction, err := ws.insurer.GetIL(address)
	if err != nil {
		ws.writeEngineError(w, err, "Failed to compute impermanent loss")
		return
	}

	response := map[string]interface{}{
		"address":       address,
		"lp_value":      valuation.LpValue,
		"holding_value": valuation.HoldingValue,
		"il_fraction":   ilFraction,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPayout returns the payout an address would receive now
func (ws *WebServer) handleGetPayout(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	payout, err := ws.insurer.GetPayout(address)
	if err != nil {
		ws.writeEngineError(w, err, "Failed to compute payout")
		return
	}

	response := map[string]interface{}{
		"address": address,
		"payout":  payout,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetHistory returns the replayed IL series for an address together
// with the annualized price-ratio volatility over that window
func (ws *WebServer) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	points, volatility, err := ws.insurer.PositionHistory(address, parseLimit(r))
	if err != nil {
		if errors.Is(err, analyzer.ErrNoSnapshots) {
			ws.writeErrorResponse(w, http.StatusNotFound, "No pool snapshots recorded yet")
			return
		}
		ws.writeEngineError(w, err, "Failed to build position history")
		return
	}

	response := map[string]interface{}{
		"address":          address,
		"points":           points,
		"count":            len(points),
		"ratio_volatility": volatility,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleClaim settles a claim and returns the receipt
func (ws *WebServer) handleClaim(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	receipt, err := ws.insurer.ProcessClaim(address)
	if err != nil {
		ws.writeEngineError(w, err, "Failed to process claim")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, receipt)
}

// handleGetClaimsByAddress returns settled claims for an address
func (ws *WebServer) handleGetClaimsByAddress(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	claims, err := state.GetClaimsByAddress(address, parseLimit(r))
	if err != nil {
		webLogger.Error().Err(err).Str("address", address).Msg("Failed to get claims")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve claims")
		return
	}

	response := map[string]interface{}{
		"address": address,
		"claims":  claims,
		"count":   len(claims),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetRecentClaims returns recent settled claims across all addresses
func (ws *WebServer) handleGetRecentClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := state.GetRecentClaims(parseLimit(r))
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent claims")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve claims")
		return
	}

	response := map[string]interface{}{
		"claims": claims,
		"count":  len(claims),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// parseLimit reads the optional ?limit= query parameter
func parseLimit(r *http.Request) int {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}
	return limit
}

// writeEngineError maps engine and store failures to HTTP status codes
func (ws *WebServer) writeEngineError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, engine.ErrNotInitialized):
		ws.writeErrorResponse(w, http.StatusConflict, "Coverage policy not initialized")
	case errors.Is(err, engine.ErrAlreadyInitialized):
		ws.writeErrorResponse(w, http.StatusConflict, "Coverage policy already initialized")
	case errors.Is(err, engine.ErrInvalidPolicy):
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, engine.ErrDivideByZero):
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, "Computation hit a zero denominator")
	case errors.Is(err, sql.ErrNoRows):
		ws.writeErrorResponse(w, http.StatusNotFound, "Position not found")
	default:
		webLogger.Error().Err(err).Msg(fallback)
		ws.writeErrorResponse(w, http.StatusInternalServerError, fallback)
	}
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
