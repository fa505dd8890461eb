package monitor

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tekuonline/uptivalab/internal/models"
)

// CertificateProbe checks the expiry of a TLS server certificate
type CertificateProbe struct {
	now func() time.Time
}

func init() {
	registerBuiltin(&CertificateProbe{})
}

func (c *CertificateProbe) Kind() models.Kind {
	return models.KindCertificate
}

func (c *CertificateProbe) Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error) {
	cfg, ok := req.Config.(*CertificateConfig)
	if !ok {
		return nil, fmt.Errorf("certificate probe: unexpected config %T", req.Config)
	}
	result := newResult(req)

	if cfg.Host == "" {
		result.Message = "No host specified"
		return result, nil
	}

	port := cfg.Port
	if port == 0 {
		port = 443
	}
	serverName := cfg.ServerName
	if serverName == "" {
		serverName = cfg.Host
	}
	warningDays := DefaultCertificateWarningDays
	if cfg.WarningDays != nil {
		warningDays = *cfg.WarningDays
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeoutOr(req, 30*time.Second)},
		Config:    &tls.Config{ServerName: serverName},
	}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(port)))
	setLatency(result, time.Since(start))
	if err != nil {
		result.Message = fmt.Sprintf("TLS handshake failed: %v", err)
		return result, nil
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		result.Message = "Server presented no certificate"
		return result, nil
	}
	leaf := certs[0]

	now := time.Now()
	if c.now != nil {
		now = c.now()
	}
	daysLeft := int(leaf.NotAfter.Sub(now).Hours() / 24)

	result.SetMeta("expiresAt", leaf.NotAfter.UTC().Format(time.RFC3339))
	result.SetMeta("daysRemaining", daysLeft)
	result.SetMeta("issuer", leaf.Issuer.CommonName)
	result.SetMeta("warningDays", warningDays)

	switch {
	case now.After(leaf.NotAfter):
		result.Message = fmt.Sprintf("Certificate expired on %s", leaf.NotAfter.UTC().Format("2006-01-02"))
	case daysLeft <= warningDays:
		result.Message = fmt.Sprintf("Certificate expires in %d days (warning at %d)", daysLeft, warningDays)
	default:
		result.Status = models.StatusUp
		result.Message = fmt.Sprintf("Certificate valid for %d days", daysLeft)
	}
	return result, nil
}
