package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"digifootprint/internal/common"
	"digifootprint/internal/gateway"
	"digifootprint/internal/scan"
	"digifootprint/internal/scoring"
)

const (
	Version = "1.0.0"

	maxBodyBytes = 10 << 20

	passwordNote = "Checked via k-anonymity Pwned Passwords (no password sent in full)"
)

// Server wraps HTTP and gRPC servers
type Server struct {
	svc     *scan.Service
	cfg     *Config
	router  *mux.Router
	grpcSrv *grpc.Server
	health  *health.Server
	now     func() time.Time

	global    *clientLimiter
	passwords *clientLimiter
	platforms *clientLimiter
}

func New(svc *scan.Service, cfg *Config) *Server {
	s := &Server{
		svc:       svc,
		cfg:       cfg,
		router:    mux.NewRouter(),
		health:    health.NewServer(),
		now:       time.Now,
		global:    newClientLimiter("global", cfg.RateLimitMax, cfg.RateLimitWindow, cfg.TrustProxy, "Too many requests. Please try again later."),
		passwords: newClientLimiter("password", 10, time.Minute, cfg.TrustProxy, "Too many password checks. Please wait a minute and try again."),
		platforms: newClientLimiter("platform", 30, time.Minute, cfg.TrustProxy, "Too many platform checks. Please wait a minute and try again."),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.NotFoundHandler = http.HandlerFunc(handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(handleNotFound)

	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.global.middleware)

	sc := api.PathPrefix("/scan").Subrouter()
	sc.HandleFunc("/email", s.handleScanEmail).Methods(http.MethodPost)
	sc.Handle("/username", s.platforms.middleware(http.HandlerFunc(s.handleScanUsername))).Methods(http.MethodPost)
	sc.Handle("/platforms", s.platforms.middleware(http.HandlerFunc(s.handleProbePlatforms))).Methods(http.MethodPost)
	sc.HandleFunc("/phone", s.handleScanPhone).Methods(http.MethodPost)
	sc.Handle("/password", s.passwords.middleware(http.HandlerFunc(s.handleScanPassword))).Methods(http.MethodPost)

	an := api.PathPrefix("/analysis").Subrouter()
	an.HandleFunc("/risk", s.handleRisk).Methods(http.MethodPost)
	an.HandleFunc("/suggestions", s.handleSuggestions).Methods(http.MethodPost)
	an.HandleFunc("/timeline", s.handleTimeline).Methods(http.MethodPost)

	api.HandleFunc("/breaches", s.handleAllBreaches).Methods(http.MethodGet)
	api.HandleFunc("/admin/config/status", s.handleConfigStatus).Methods(http.MethodGet)
}

// Router returns the HTTP handler with the cross-cutting middleware applied
// outside route matching, so preflight and 404 responses carry it too.
func (s *Server) Router() http.Handler {
	return logRequests(s.securityHeaders(s.cors(s.router)))
}

func (s *Server) StartMetrics(addr string) {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, m); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "err", err)
		}
	}()
}

// StartGRPC serves the standard health service on addr until Stop.
func (s *Server) StartGRPC(addr string) error {
	s.grpcSrv = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcSrv, s.health)
	s.health.SetServingStatus("digifootprint", healthpb.HealthCheckResponse_SERVING)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.grpcSrv.Serve(ln)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	if s.grpcSrv != nil {
		s.grpcSrv.GracefulStop()
	}
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Powered-By", "DigitalFootprint")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := s.cfg.CORSOrigin
		if origin == "*" && r.Header.Get("Origin") != "" {
			// credentialed requests cannot use a wildcard
			origin = r.Header.Get("Origin")
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Add("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Path    string `json:"path,omitempty"`
	Method  string `json:"method,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "err", err)
	}
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return false
	}
	return true
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "Route not found", Path: r.URL.Path, Method: r.Method})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "Server is running",
		"timestamp": s.now(),
		"version":   Version,
	})
}

func (s *Server) handleScanEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := s.svc.ScanEmail(r.Context(), req.Email)
	if err != nil {
		s.scanFailed(w, "Failed to scan email. Please try again.", err)
		return
	}
	writeData(w, res)
}

func (s *Server) handleScanUsername(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := s.svc.ScanUsername(r.Context(), req.Username)
	if err != nil {
		s.scanFailed(w, "Failed to scan username", err)
		return
	}
	writeData(w, res)
}

func (s *Server) handleProbePlatforms(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "Username is required", "")
		return
	}
	writeData(w, s.svc.ProbePlatforms(r.Context(), req.Username))
}

func (s *Server) handleScanPhone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := s.svc.ScanPhone(r.Context(), req.Phone)
	if err != nil {
		s.scanFailed(w, "Failed to scan phone", err)
		return
	}
	writeData(w, res)
}

type passwordResponse struct {
	Pwned bool   `json:"pwned"`
	Count int    `json:"count"`
	Note  string `json:"note"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleScanPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := s.svc.CheckPassword(r.Context(), req.Password)
	if errors.Is(err, scan.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "Password is required", "")
		return
	}
	out := passwordResponse{Pwned: res.Pwned, Count: res.Count, Note: passwordNote}
	if err != nil {
		out.Error = err.Error()
	}
	writeData(w, out)
}

type scanResultRequest struct {
	ScanResult *common.ScanResult `json:"scanResult"`
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	var req scanResultRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ScanResult == nil {
		writeError(w, http.StatusBadRequest, "Scan result is required", "")
		return
	}
	a := s.svc.Score(req.ScanResult)
	writeData(w, map[string]any{
		"score":          a.Score,
		"level":          a.Level,
		"color":          a.Color,
		"factors":        a.Factors,
		"recommendation": a.Recommendation,
		"risks":          scoring.Risks(req.ScanResult),
		"generatedAt":    s.now(),
		"dataSource":     "Real-time API analysis",
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req scanResultRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ScanResult == nil {
		writeError(w, http.StatusBadRequest, "Scan result is required", "")
		return
	}
	set := scoring.Suggestions(req.ScanResult)
	writeData(w, map[string]any{
		"urgent":           set.Urgent,
		"recommended":      set.Recommended,
		"all":              set.All,
		"totalSuggestions": set.TotalSuggestions,
		"generatedAt":      s.now(),
	})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Breaches *[]common.BreachRecord `json:"breaches"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Breaches == nil {
		writeError(w, http.StatusBadRequest, "Breaches array is required", "")
		return
	}
	now := s.now()
	tl := scoring.BreachTimeline(*req.Breaches, now)
	writeData(w, map[string]any{
		"timeline":    tl.Timeline,
		"stats":       tl.Stats,
		"message":     tl.Message,
		"generatedAt": now,
	})
}

func (s *Server) handleAllBreaches(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.svc.AllBreaches(r.Context()))
}

func (s *Server) handleConfigStatus(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]bool{
		"hibpConfigured":   gateway.KeyConfigured(s.cfg.HIBPKey),
		"intelxConfigured": gateway.KeyConfigured(s.cfg.IntelXKey),
	})
}

func (s *Server) scanFailed(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, scan.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "Invalid input", err.Error())
		return
	}
	slog.Error("scan failed", "err", err)
	writeError(w, http.StatusInternalServerError, msg, err.Error())
}
