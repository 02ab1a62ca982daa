package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"securewipe/internal/auth"
	"securewipe/internal/blob"
	"securewipe/internal/compute"
	"securewipe/internal/domain"
	"securewipe/internal/service"
	"securewipe/internal/store"
	transport "securewipe/internal/transport/http"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRouter(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&domain.User{}, &domain.Device{}, &domain.Certificate{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	computeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/wipe":
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			userID, _ := req["user_id"].(string)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "running",
				"certificate_json": map[string]any{
					"payload": map[string]any{
						"certificate_id": "C1",
						"user_id":        userID,
						"wipe":           map[string]any{"method": "zero-fill-1pass", "log_hash": "abc", "completed_at": time.Now().UTC().Format(time.RFC3339)},
					},
					"signature": "sig1",
				},
			})
		case "/api/genpdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF"))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(computeSrv.Close)

	blobSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://blob" + r.URL.Path})
	}))
	t.Cleanup(blobSrv.Close)

	st := store.New(gdb)
	tokens := auth.NewTokens(auth.TokenConfig{SigningKey: []byte("test-secret"), TTL: time.Hour})
	authSvc := auth.NewService(st, tokens)
	svc := service.New(st,
		compute.NewClient(compute.Config{BaseURL: computeSrv.URL, WipeTimeout: 5 * time.Second, ArtifactTimeout: 5 * time.Second}),
		blob.NewClient(blob.Config{BaseURL: blobSrv.URL}),
	)
	t.Cleanup(svc.Drain)

	return transport.NewRouter(svc, authSvc, tokens, transport.RouterConfig{}), st
}

func postJSON(t *testing.T, h http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWipeRequiresToken(t *testing.T) {
	h, _ := setupRouter(t)

	rec := postJSON(t, h, "/api/wipe", "", map[string]any{"device": map[string]any{"id": "dev-1"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = postJSON(t, h, "/api/wipe", "garbage", map[string]any{"device": map[string]any{"id": "dev-1"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestRegisterLoginWipeFlow(t *testing.T) {
	h, st := setupRouter(t)

	rec := postJSON(t, h, "/auth/register", "", map[string]string{
		"username": "u1", "email": "u1@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, h, "/auth/login", "", map[string]string{
		"email": "u1@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil || login.Token == "" {
		t.Fatalf("login response missing token: %s", rec.Body.String())
	}

	rec = postJSON(t, h, "/api/wipe", login.Token, map[string]any{
		"device": map[string]any{"id": "dev-1", "model": "WD Blue"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("wipe: status %d body %s", rec.Code, rec.Body.String())
	}
	var wipe struct {
		Status      string `json:"status"`
		Certificate struct {
			Payload   json.RawMessage `json:"payload"`
			Signature string          `json:"signature"`
		} `json:"certificate_json"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &wipe); err != nil {
		t.Fatalf("decode wipe response: %v", err)
	}
	if wipe.Status != "running" || wipe.Certificate.Signature != "sig1" {
		t.Fatalf("unexpected wipe response: %s", rec.Body.String())
	}

	if _, err := st.Certificates().GetByCertificateID(context.Background(), "C1"); err != nil {
		t.Fatalf("certificate not persisted: %v", err)
	}

	rec = postJSON(t, h, "/api/wipe", login.Token, map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing device, got %d", rec.Code)
	}
}

func TestDriveHealthRequiresDriveID(t *testing.T) {
	h, _ := setupRouter(t)

	rec := postJSON(t, h, "/auth/register", "", map[string]string{
		"username": "u2", "email": "u2@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: %d", rec.Code)
	}
	rec = postJSON(t, h, "/auth/login", "", map[string]string{"email": "u2@example.com", "password": "hunter22"})
	var login struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &login)

	rec = postJSON(t, h, "/api/drive/health", login.Token, map[string]any{"smart": map[string]any{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without drive_id, got %d: %s", rec.Code, rec.Body.String())
	}
}
