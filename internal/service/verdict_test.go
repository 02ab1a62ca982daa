package service_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"securewipe/internal/service"
)

// verdictService wires a service against a compute fake that only serves the
// analysis endpoints (verify-cert, verify-pdf, drive/health).
func verdictService(t *testing.T, handler http.Handler) *service.Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, _, _ := setupService(t, srv.URL, blobServer(t, map[string]string{}).URL)
	return svc
}

func TestDriveHealthScoreBanding(t *testing.T) {
	cases := []struct {
		score      float64
		prediction string
		message    string
	}{
		{0.1, "10%", "The drive is robust. No failure predicted."},
		{0.4, "40%", "The drive is healthy. Minimal risk detected."},
		{0.65, "65%", "The drive shows moderate risk. Consider monitoring and backing up important data."},
		{0.9, "90%", "The drive is predicted to fail. Please avoid using it for critical data."},
	}

	var score float64
	svc := verdictService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/drive/health" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"drive_id": "sda", "health_score": score})
	}))

	for _, tc := range cases {
		score = tc.score
		res, err := svc.DriveHealth(context.Background(), json.RawMessage(`{"drive_id":"sda"}`))
		if err != nil {
			t.Fatalf("drive health (score %v): %v", tc.score, err)
		}
		if res.Message != tc.message {
			t.Fatalf("score %v: expected %q, got %q", tc.score, tc.message, res.Message)
		}
		if res.Prediction != tc.prediction {
			t.Fatalf("score %v: expected prediction %q, got %q", tc.score, tc.prediction, res.Prediction)
		}
		if res.HealthScore != tc.score {
			t.Fatalf("score %v not echoed, got %v", tc.score, res.HealthScore)
		}
	}
}

func TestDriveHealthMissingScore(t *testing.T) {
	svc := verdictService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"drive_id": "sda"})
	}))

	res, err := svc.DriveHealth(context.Background(), json.RawMessage(`{"drive_id":"sda"}`))
	if err != nil {
		t.Fatalf("drive health: %v", err)
	}
	// A response without a score must not read as a healthy drive.
	if res.Message != "Unable to determine drive health. Please check input or try again." {
		t.Fatalf("expected indeterminate verdict, got %q", res.Message)
	}
	if res.Prediction != "" {
		t.Fatalf("no prediction may be synthesized without a score, got %q", res.Prediction)
	}
	if res.HealthScore != 0 {
		t.Fatalf("unexpected health score %v", res.HealthScore)
	}
}

func TestDriveHealthOutOfRangeScore(t *testing.T) {
	svc := verdictService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"health_score": 1.7})
	}))

	res, err := svc.DriveHealth(context.Background(), json.RawMessage(`{"drive_id":"sda"}`))
	if err != nil {
		t.Fatalf("drive health: %v", err)
	}
	if res.Message != "Unable to determine drive health. Please check input or try again." {
		t.Fatalf("expected indeterminate verdict for out-of-range score, got %q", res.Message)
	}
}

func TestVerifyPDFVerdicts(t *testing.T) {
	cases := []struct {
		name     string
		valid    bool
		coverage string
		message  string
	}{
		{"valid full coverage", true, "SignatureCoverageLevel.ENTIRE_FILE", "The PDF signature is valid and issued by SecureWipe."},
		{"foreign signature", false, "SignatureCoverageLevel.ENTIRE_FILE", "The PDF contains signatures that were not issued by SecureWipe."},
		{"partial coverage", true, "SignatureCoverageLevel.ENTIRE_FILE_UNSIGNED_UPDATES", "The PDF signature is either invalid or not present."},
		{"no signature", false, "", "The PDF signature is either invalid or not present."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotFile string
			svc := verdictService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/verify-pdf" {
					http.NotFound(w, r)
					return
				}
				file, _, err := r.FormFile("file")
				if err != nil {
					http.Error(w, "file part missing", http.StatusBadRequest)
					return
				}
				defer func() { _ = file.Close() }()
				b, _ := io.ReadAll(file)
				gotFile = string(b)
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{
					"valid":    tc.valid,
					"coverage": tc.coverage,
				})
			}))

			out, err := svc.VerifyPDF(context.Background(), "cert.pdf", strings.NewReader("%PDF-1.7 body"))
			if err != nil {
				t.Fatalf("verify pdf: %v", err)
			}
			if gotFile != "%PDF-1.7 body" {
				t.Fatalf("file bytes not forwarded, got %q", gotFile)
			}
			if out["message"] != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, out["message"])
			}
			if out["valid"] != tc.valid {
				t.Fatalf("upstream verdict fields must survive, got %v", out["valid"])
			}
		})
	}
}

func TestVerifyCertificatePassthrough(t *testing.T) {
	upstream := `{"valid":true,"reason":"signature matches","sha256":"deadbeef"}`

	var gotBody string
	svc := verdictService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/verify-cert" {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstream))
	}))

	sent := json.RawMessage(`{"payload":{"certificate_id":"C1"},"signature":"sig1"}`)
	raw, err := svc.VerifyCertificate(context.Background(), sent)
	if err != nil {
		t.Fatalf("verify certificate: %v", err)
	}
	var forwarded, original map[string]any
	if err := json.Unmarshal([]byte(gotBody), &forwarded); err != nil {
		t.Fatalf("forwarded body is not JSON: %v", err)
	}
	if err := json.Unmarshal(sent, &original); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if forwarded["signature"] != original["signature"] {
		t.Fatalf("request body not forwarded intact: %q", gotBody)
	}
	if string(raw) != upstream {
		t.Fatalf("verdict must pass through unmodified, got %s", raw)
	}
}
