package monitor

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tekuonline/uptivalab/internal/models"
)

// DNSProbe performs DNS query checks
type DNSProbe struct{}

func init() {
	registerBuiltin(&DNSProbe{})
}

func (d *DNSProbe) Kind() models.Kind {
	return models.KindDNS
}

func (d *DNSProbe) Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error) {
	cfg, ok := req.Config.(*DNSConfig)
	if !ok {
		return nil, fmt.Errorf("dns probe: unexpected config %T", req.Config)
	}
	result := newResult(req)

	if cfg.Host == "" {
		result.Message = "No hostname specified"
		return result, nil
	}

	queryType := strings.ToUpper(cfg.QueryType)
	if queryType == "" {
		queryType = "A"
	}
	timeout := timeoutOr(req, 30*time.Second)

	resolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			network = networkFor(network, cfg.IPVersion)
			if cfg.Server != "" {
				server := cfg.Server
				if _, _, err := net.SplitHostPort(server); err != nil {
					server = net.JoinHostPort(server, "53")
				}
				return d.DialContext(ctx, network, server)
			}
			return d.DialContext(ctx, network, address)
		},
	}

	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var records []string
	var err error

	switch queryType {
	case "A", "AAAA":
		family := "ip4"
		if queryType == "AAAA" {
			family = "ip6"
		}
		var ips []net.IP
		ips, err = resolver.LookupIP(queryCtx, family, cfg.Host)
		for _, ip := range ips {
			records = append(records, ip.String())
		}
	case "CNAME":
		var cname string
		cname, err = resolver.LookupCNAME(queryCtx, cfg.Host)
		if cname != "" {
			records = append(records, cname)
		}
	case "MX":
		var mxs []*net.MX
		mxs, err = resolver.LookupMX(queryCtx, cfg.Host)
		for _, mx := range mxs {
			records = append(records, fmt.Sprintf("%s (priority: %d)", mx.Host, mx.Pref))
		}
	case "NS":
		var nss []*net.NS
		nss, err = resolver.LookupNS(queryCtx, cfg.Host)
		for _, ns := range nss {
			records = append(records, ns.Host)
		}
	case "TXT":
		records, err = resolver.LookupTXT(queryCtx, cfg.Host)
	default:
		result.Message = fmt.Sprintf("Unsupported query type: %s", queryType)
		return result, nil
	}

	latency := setLatency(result, time.Since(start))

	if err != nil {
		result.Message = fmt.Sprintf("DNS query failed: %v", err)
		return result, nil
	}
	if len(records) == 0 {
		result.Message = fmt.Sprintf("No %s records found", queryType)
		return result, nil
	}

	if cfg.ExpectedResult != "" && !containsAny(records, cfg.ExpectedResult) {
		result.Message = fmt.Sprintf("Expected result '%s' not found in: %s",
			cfg.ExpectedResult, strings.Join(records, ", "))
		return result, nil
	}

	result.Status = models.StatusUp
	result.Message = fmt.Sprintf("%s query OK - %s - %dms", queryType, strings.Join(records, ", "), latency)
	return result, nil
}

func containsAny(records []string, want string) bool {
	for _, r := range records {
		if strings.Contains(r, want) {
			return true
		}
	}
	return false
}
