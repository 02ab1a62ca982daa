package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"securewipe/internal/auth"
	"securewipe/internal/compute"
	"securewipe/internal/domain"
	"securewipe/internal/dto"
	"securewipe/internal/observability/middleware"
	"securewipe/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	CORSOrigins []string
}

func NewRouter(svc *service.Service, authSvc *auth.Service, tokens *auth.Tokens, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(httprate.LimitByIP(100, 1*time.Minute))

	c := cors.Options{
		AllowedOrigins:   originsIfSet(cfg.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	r.Use(cors.Handler(c))
	r.Use(middleware.WithRequestAndTrace)
	r.Use(middleware.WithMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handleRegister(authSvc))
		r.Post("/login", handleLogin(authSvc))
	})

	// PDF verification needs no account: anyone holding a certificate PDF may
	// check it.
	r.Post("/api/verify-pdf", handleVerifyPDF(svc))

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireAuth(tokens))
		r.Post("/wipe", handleWipe(svc))
		r.Get("/list-certificates", handleListCertificates(svc))
		r.Get("/certificates/{certID}", handleCertificateJSON(svc))
		r.Get("/certificates/{certID}/pdf", handleCertificatePDF(svc))
		r.Post("/verify-cert", handleVerifyCert(svc))
		r.Post("/drive/health", handleDriveHealth(svc))
	})

	return r
}

func handleRegister(authSvc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		res, err := authSvc.Register(r.Context(), req)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleLogin(authSvc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		res, err := authSvc.Login(r.Context(), req)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleWipe(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.RequestIDFromContext(r.Context())
		traceID := middleware.TraceIDFromContext(r.Context())
		caller, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		var req dto.WipeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			slog.Warn("wipe request decode failed", "error", err, "request_id", reqID, "trace_id", traceID)
			return
		}
		res, err := svc.SubmitWipe(r.Context(), caller, req)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			slog.Warn("wipe request failed", "error", err, "user_id", caller.UserID, "request_id", reqID, "trace_id", traceID)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleListCertificates(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		res, err := svc.ListCertificates(r.Context(), caller.UserID)
		if err != nil {
			writeError(w, statusFor(err), "failed to fetch certificates")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleCertificateJSON(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		certID := chi.URLParam(r, "certID")
		raw, err := svc.CertificateJSON(r.Context(), certID)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeRaw(w, http.StatusOK, raw)
	}
}

func handleCertificatePDF(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		certID := chi.URLParam(r, "certID")
		url, err := svc.CertificatePDFUrl(r.Context(), certID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrCertificateNotFound):
				writeError(w, http.StatusNotFound, "Certificate not found")
			case errors.Is(err, service.ErrArtifactNotReady):
				writeError(w, http.StatusBadRequest, "PDF not ready yet")
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	}
}

func handleVerifyCert(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		raw, err := svc.VerifyCertificate(r.Context(), body)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeRaw(w, http.StatusOK, raw)
	}
}

func handleVerifyPDF(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "PDF file is required")
			return
		}
		defer func() { _ = file.Close() }()
		res, err := svc.VerifyPDF(r.Context(), header.Filename, file)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleDriveHealth(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		var req struct {
			DriveID string `json:"drive_id"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.DriveID == "" {
			writeError(w, http.StatusBadRequest, "Drive ID field is required")
			return
		}
		res, err := svc.DriveHealth(r.Context(), body)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// statusFor maps the service error taxonomy onto HTTP statuses. Upstream
// compute failures keep their original status so callers see what the compute
// service reported.
func statusFor(err error) int {
	var ue *compute.UpstreamError
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, auth.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrArtifactNotReady):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrCertificateNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateCertificate):
		return http.StatusConflict
	case errors.Is(err, compute.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &ue):
		return ue.StatusCode
	default:
		return http.StatusInternalServerError
	}
}

func originsIfSet(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
