package dto

import "time"

type CertificateSummary struct {
	CertificateID string     `json:"certificateId"`
	UserID        string     `json:"userId"`
	DeviceID      string     `json:"deviceId"`
	WipeMethod    string     `json:"wipeMethod"`
	Status        string     `json:"status"`
	LogHash       string     `json:"logHash,omitempty"`
	PDFUrl        string     `json:"pdfUrl,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

type ListCertificatesResponse struct {
	Success      bool                 `json:"success"`
	Certificates []CertificateSummary `json:"certificates"`
}

type DriveHealthResponse struct {
	HealthScore float64 `json:"health_score"`
	Prediction  string  `json:"prediction"`
	Temperature int     `json:"temperature"`
	SmartStatus string  `json:"smart_status"`
	Message     string  `json:"message"`
}
