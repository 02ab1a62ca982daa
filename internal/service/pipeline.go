package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"securewipe/internal/domain"
	"securewipe/internal/observability/metrics"
	"securewipe/internal/observability/middleware"
)

// ArtifactKey is the deterministic blob key for a certificate's rendered PDF.
// Re-running the pipeline overwrites the same object instead of duplicating it.
func ArtifactKey(certificateID string) string {
	return "certificates/" + certificateID + ".pdf"
}

// spawnArtifactPipeline detaches the artifact work from the request lifecycle.
// The context keeps its request values but loses its cancellation: by the time
// the pipeline runs, the response has been sent and there is no caller left to
// cancel on behalf of.
func (s *Service) spawnArtifactPipeline(ctx context.Context, cert domain.Certificate) {
	ctx = context.WithoutCancel(ctx)
	s.pipelines.Add(1)
	go func() {
		defer s.pipelines.Done()
		s.processArtifact(ctx, cert)
	}()
}

// processArtifact drives a certificate to a terminal status. Failures are
// recorded on the certificate and logged; nothing is propagated, since there
// is no higher layer to escalate to.
func (s *Service) processArtifact(ctx context.Context, cert domain.Certificate) {
	start := time.Now()
	reqID := middleware.RequestIDFromContext(ctx)
	traceID := middleware.TraceIDFromContext(ctx)

	url, err := s.generateArtifact(ctx, cert)
	metrics.ArtifactPipelineDurationSeconds.Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.ArtifactPipelineTotal.WithLabelValues("success").Inc()
		slog.Info("certificate artifact uploaded",
			"certificate_id", cert.CertificateID,
			"pdf_url", url,
			"request_id", reqID,
			"trace_id", traceID,
		)
		return
	}

	metrics.ArtifactPipelineTotal.WithLabelValues("failure").Inc()
	slog.Error("artifact pipeline failed",
		"certificate_id", cert.CertificateID,
		"error", err,
		"request_id", reqID,
		"trace_id", traceID,
	)
	if uerr := s.store.Certificates().UpdateStatus(ctx, cert.CertificateID, domain.StatusFailed, map[string]any{
		"error": err.Error(),
	}); uerr != nil {
		slog.Error("failed to record artifact failure",
			"certificate_id", cert.CertificateID,
			"error", uerr,
			"request_id", reqID,
			"trace_id", traceID,
		)
	}
}

func (s *Service) generateArtifact(ctx context.Context, cert domain.Certificate) (string, error) {
	stream, err := s.compute.RequestArtifact(ctx, json.RawMessage(cert.Payload), cert.Signature)
	if err != nil {
		return "", fmt.Errorf("render artifact: %w", err)
	}
	defer func() { _ = stream.Close() }()

	url, err := s.uploader.Upload(ctx, ArtifactKey(cert.CertificateID), "application/pdf", stream)
	if err != nil {
		return "", fmt.Errorf("upload artifact: %w", err)
	}

	if err := s.store.Certificates().UpdateStatus(ctx, cert.CertificateID, domain.StatusCompleted, map[string]any{
		"pdf_url": url,
	}); err != nil {
		return "", fmt.Errorf("mark completed: %w", err)
	}
	return url, nil
}
