// Package certs inspects the TLS certificate the server is started with.
package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"
)

// DefaultRenewWindow is how close to expiry a certificate is reported as due for renewal.
const DefaultRenewWindow = 14 * 24 * time.Hour

var ErrExpired = errors.New("certificate expired")

// CertManager checks certificate files before they are served.
type CertManager struct {
	renewWindow time.Duration
	now         func() time.Time
}

// NewCertManager returns a manager warning renewWindow before expiry. Zero uses DefaultRenewWindow.
func NewCertManager(renewWindow time.Duration) *CertManager {
	if renewWindow <= 0 {
		renewWindow = DefaultRenewWindow
	}
	return &CertManager{renewWindow: renewWindow, now: time.Now}
}

// Status describes a checked certificate.
type Status struct {
	Subject  string
	NotAfter time.Time
	// RenewSoon is set when the certificate expires within the renew window.
	RenewSoon bool
}

// CheckPair loads the key pair as the server would and reports the leaf's validity.
// An expired leaf yields ErrExpired along with its status.
func (cm *CertManager) CheckPair(certFile, keyFile string) (Status, error) {
	if _, err := tls.LoadX509KeyPair(certFile, keyFile); err != nil {
		return Status{}, fmt.Errorf("load key pair: %w", err)
	}
	cert, err := cm.loadCertificate(certFile)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		Subject:   cert.Subject.String(),
		NotAfter:  cert.NotAfter,
		RenewSoon: cert.NotAfter.Sub(cm.now()) < cm.renewWindow,
	}
	if cm.IsExpired(cert) {
		return st, fmt.Errorf("%s: %w on %s", certFile, ErrExpired, cert.NotAfter.Format(time.RFC3339))
	}
	return st, nil
}

// loadCertificate parses the first PEM block of a file.
func (cm *CertManager) loadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to parse certificate PEM")
	}

	return x509.ParseCertificate(block.Bytes)
}

// IsExpired checks if a certificate is expired.
func (cm *CertManager) IsExpired(cert *x509.Certificate) bool {
	return cert.NotAfter.Before(cm.now())
}
