// Package service implements the wipe-to-certificate fulfillment workflow:
// the synchronous phase that creates a certificate, and the detached artifact
// pipeline that renders and uploads its PDF.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"securewipe/internal/auth"
	"securewipe/internal/blob"
	"securewipe/internal/compute"
	"securewipe/internal/domain"
	"securewipe/internal/dto"
	"securewipe/internal/observability/metrics"
	"securewipe/internal/observability/middleware"
	"securewipe/internal/store"

	"github.com/google/uuid"
)

type Service struct {
	store    *store.Store
	compute  *compute.Client
	uploader blob.Uploader

	pipelines sync.WaitGroup
}

func New(st *store.Store, cc *compute.Client, up blob.Uploader) *Service {
	return &Service{store: st, compute: cc, uploader: up}
}

// SubmitWipe runs the synchronous phase of fulfillment: resolve the device,
// trigger the wipe, persist the certificate, and hand the record to the
// artifact pipeline. The response never waits for the pipeline.
func (s *Service) SubmitWipe(ctx context.Context, caller auth.Identity, req dto.WipeRequest) (dto.WipeResponse, error) {
	result := "success"
	defer func() {
		metrics.WipeRequestsTotal.WithLabelValues(result).Inc()
	}()

	if len(req.Device) == 0 {
		result = "failure"
		return dto.WipeResponse{}, fmt.Errorf("%w: device descriptor is required", ErrInvalidRequest)
	}

	user, err := s.store.Users().Get(ctx, caller.UserID)
	if err != nil {
		result = "failure"
		if errors.Is(err, store.ErrRecordNotFound) {
			return dto.WipeResponse{}, ErrUserNotFound
		}
		return dto.WipeResponse{}, err
	}

	descriptor, err := NormalizeDevice(caller.UserID, req.Device)
	if err != nil {
		result = "failure"
		return dto.WipeResponse{}, err
	}
	device, err := s.store.Devices().Resolve(ctx, descriptor)
	if err != nil {
		result = "failure"
		return dto.WipeResponse{}, err
	}

	payload := map[string]any{
		"device":   req.Device,
		"user_id":  caller.UserID.String(),
		"username": user.Username,
	}
	if req.Method != "" {
		payload["method"] = req.Method
	}
	for k, v := range req.Params {
		payload[k] = v
	}

	res, err := s.compute.RequestWipe(ctx, payload)
	if err != nil {
		result = "failure"
		return dto.WipeResponse{}, err
	}

	cert, err := s.store.Certificates().Create(ctx, domain.Certificate{
		CertificateID: res.Certificate.CertificateID,
		UserID:        certificateUserID(res.Certificate.UserID, caller.UserID),
		DeviceID:      device.ID,
		WipeMethod:    stringOr(res.Certificate.Wipe.Method, defaultWipeMethod),
		Status:        domain.Status(res.Status),
		LogHash:       res.Certificate.Wipe.LogHash,
		Payload:       string(res.Payload),
		Signature:     res.Signature,
		CompletedAt:   completedAt(res.Certificate.Wipe.CompletedAt),
	})
	if err != nil {
		result = "failure"
		if errors.Is(err, store.ErrDuplicateCertificate) {
			return dto.WipeResponse{}, fmt.Errorf("%w: %s", ErrDuplicateCertificate, res.Certificate.CertificateID)
		}
		return dto.WipeResponse{}, err
	}

	reqID := middleware.RequestIDFromContext(ctx)
	traceID := middleware.TraceIDFromContext(ctx)
	slog.Info("wipe certificate created",
		"certificate_id", cert.CertificateID,
		"user_id", cert.UserID,
		"device_id", cert.DeviceID,
		"status", cert.Status,
		"request_id", reqID,
		"trace_id", traceID,
	)

	// Handoff happens only now that the record is durable; the pipeline
	// requires a valid row to update.
	s.spawnArtifactPipeline(ctx, *cert)

	return dto.WipeResponse{
		Status: res.Status,
		Certificate: dto.SignedCertificate{
			Payload:   res.Payload,
			Signature: res.Signature,
		},
		Message: "Wipe triggered successfully",
	}, nil
}

// Drain blocks until all in-flight artifact pipelines reach a terminal
// outcome. Used on shutdown so detached work is not cut off mid-upload.
func (s *Service) Drain() {
	s.pipelines.Wait()
}

func (s *Service) ListCertificates(ctx context.Context, userID uuid.UUID) (dto.ListCertificatesResponse, error) {
	certs, err := s.store.Certificates().ListByUser(ctx, userID)
	if err != nil {
		return dto.ListCertificatesResponse{}, err
	}
	out := make([]dto.CertificateSummary, 0, len(certs))
	for _, c := range certs {
		out = append(out, dto.CertificateSummary{
			CertificateID: c.CertificateID,
			UserID:        c.UserID.String(),
			DeviceID:      c.DeviceID.String(),
			WipeMethod:    c.WipeMethod,
			Status:        string(c.Status),
			LogHash:       c.LogHash,
			PDFUrl:        c.PDFUrl,
			Error:         c.Error,
			CreatedAt:     c.CreatedAt,
			CompletedAt:   c.CompletedAt,
		})
	}
	return dto.ListCertificatesResponse{Success: true, Certificates: out}, nil
}

// CertificateJSON reads back the certificate document held by the compute
// service.
func (s *Service) CertificateJSON(ctx context.Context, certificateID string) (json.RawMessage, error) {
	return s.compute.GetCertificate(ctx, certificateID)
}

// CertificatePDFUrl returns the artifact URL for a certificate, or
// ErrArtifactNotReady while the pipeline has not completed.
func (s *Service) CertificatePDFUrl(ctx context.Context, certificateID string) (string, error) {
	cert, err := s.store.Certificates().GetByCertificateID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return "", ErrCertificateNotFound
		}
		return "", err
	}
	if cert.PDFUrl == "" {
		return "", ErrArtifactNotReady
	}
	return cert.PDFUrl, nil
}

func (s *Service) VerifyCertificate(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	return s.compute.VerifyCertificate(ctx, body)
}

const entireFileCoverage = "SignatureCoverageLevel.ENTIRE_FILE"

// VerifyPDF forwards an uploaded PDF for signature verification and attaches
// a human-readable verdict.
func (s *Service) VerifyPDF(ctx context.Context, filename string, file io.Reader) (map[string]any, error) {
	out, err := s.compute.VerifyPDF(ctx, filename, file)
	if err != nil {
		return nil, err
	}
	valid, _ := out["valid"].(bool)
	coverage, _ := out["coverage"].(string)
	switch {
	case valid && coverage == entireFileCoverage:
		out["message"] = "The PDF signature is valid and issued by SecureWipe."
	case !valid && coverage == entireFileCoverage:
		out["message"] = "The PDF contains signatures that were not issued by SecureWipe."
	default:
		out["message"] = "The PDF signature is either invalid or not present."
	}
	return out, nil
}

// DriveHealth forwards SMART data to the compute service and bands the
// returned health score into a prediction message.
func (s *Service) DriveHealth(ctx context.Context, body json.RawMessage) (dto.DriveHealthResponse, error) {
	out, err := s.compute.DriveHealth(ctx, body)
	if err != nil {
		return dto.DriveHealthResponse{}, err
	}
	score, ok := out["health_score"].(float64)
	resp := dto.DriveHealthResponse{
		Temperature: 34,
		SmartStatus: "OK",
	}
	if ok {
		resp.HealthScore = score
		resp.Prediction = fmt.Sprintf("%d%%", int(math.Round(score*100)))
	}
	switch {
	case !ok:
		resp.Message = "Unable to determine drive health. Please check input or try again."
	case score >= 0 && score < 0.3:
		resp.Message = "The drive is robust. No failure predicted."
	case score >= 0.3 && score < 0.5:
		resp.Message = "The drive is healthy. Minimal risk detected."
	case score >= 0.5 && score < 0.8:
		resp.Message = "The drive shows moderate risk. Consider monitoring and backing up important data."
	case score >= 0.8 && score <= 1:
		resp.Message = "The drive is predicted to fail. Please avoid using it for critical data."
	default:
		resp.Message = "Unable to determine drive health. Please check input or try again."
	}
	return resp, nil
}

func certificateUserID(payloadUserID string, caller uuid.UUID) uuid.UUID {
	if id, err := uuid.Parse(payloadUserID); err == nil {
		return id
	}
	return caller
}

func completedAt(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
