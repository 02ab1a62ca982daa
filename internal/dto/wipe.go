package dto

import "encoding/json"

// WipeRequest is the body of POST /api/wipe. Device arrives as an untyped
// document; normalization into typed fields happens in the service layer.
type WipeRequest struct {
	Device map[string]any `json:"device"`
	Method string         `json:"method,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// SignedCertificate is the payload+signature pair produced by the compute
// service. Payload is kept raw so the signed bytes survive round-trips intact.
type SignedCertificate struct {
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

type WipeResponse struct {
	Status      string            `json:"status"`
	Certificate SignedCertificate `json:"certificate_json"`
	Message     string            `json:"message"`
}
