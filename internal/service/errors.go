package service

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrUserNotFound         = errors.New("user not found")
	ErrCertificateNotFound  = errors.New("certificate not found")
	ErrArtifactNotReady     = errors.New("artifact not ready")
	ErrDuplicateCertificate = errors.New("duplicate certificate id")
)
