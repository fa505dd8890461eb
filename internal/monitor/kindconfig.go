package monitor

import (
	"encoding/json"
	"fmt"

	"github.com/tekuonline/uptivalab/internal/models"
)

// KindConfig is the typed, kind-specific configuration of a monitor.
// Exactly one concrete type exists per models.Kind.
type KindConfig interface {
	Kind() models.Kind
}

// HTTPConfig configures an HTTP(S) probe
type HTTPConfig struct {
	URL                 string            `json:"url"`
	Method              string            `json:"method,omitempty"`
	Headers             map[string]string `json:"headers,omitempty"`
	Body                string            `json:"body,omitempty"`
	AcceptedStatusCodes []int             `json:"acceptedStatusCodes,omitempty"`
	Keyword             string            `json:"keyword,omitempty"`
	InvertKeyword       bool              `json:"invertKeyword,omitempty"`
	IgnoreTLS           bool              `json:"ignoreTls,omitempty"`
	FollowRedirects     *bool             `json:"followRedirects,omitempty"`
	IPVersion           string            `json:"ipVersion,omitempty"`
}

// TCPConfig configures a TCP port probe
type TCPConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	IPVersion string `json:"ipVersion,omitempty"`
}

// PingConfig configures an ICMP probe
type PingConfig struct {
	Host        string `json:"host"`
	PacketCount int    `json:"packetCount,omitempty"`
	PacketSize  int    `json:"packetSize,omitempty"`
	Privileged  bool   `json:"privileged,omitempty"`
}

// DNSConfig configures a DNS query probe
type DNSConfig struct {
	Host           string `json:"host"`
	Server         string `json:"server,omitempty"`
	QueryType      string `json:"queryType,omitempty"`
	ExpectedResult string `json:"expectedResult,omitempty"`
	IPVersion      string `json:"ipVersion,omitempty"`
}

// DockerConfig configures a container state probe
type DockerConfig struct {
	Container  string `json:"container"`
	DockerHost string `json:"dockerHost,omitempty"`
}

// CertificateConfig configures a TLS certificate expiry probe.
// WarningDays is nil until enrichment fills in the global default.
type CertificateConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port,omitempty"`
	ServerName  string `json:"serverName,omitempty"`
	WarningDays *int   `json:"warningDays,omitempty"`
}

// DatabaseConfig configures a database connectivity probe
type DatabaseConfig struct {
	Driver string `json:"driver"` // postgres, mysql, sqlserver
	DSN    string `json:"dsn"`
	Query  string `json:"query,omitempty"`
}

// GRPCConfig configures a gRPC health probe
type GRPCConfig struct {
	Target   string `json:"target"`
	Service  string `json:"service,omitempty"`
	TLS      bool   `json:"tls,omitempty"`
	Insecure bool   `json:"insecureSkipVerify,omitempty"`
}

// SyntheticStep is one action of a browser journey
type SyntheticStep struct {
	Action   string `json:"action"` // navigate, click, type, waitVisible, assertText
	Label    string `json:"label,omitempty"`
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector,omitempty"`
	Value    string `json:"value,omitempty"`
}

// SyntheticConfig configures a scripted browser journey
type SyntheticConfig struct {
	Steps             []SyntheticStep `json:"steps"`
	ScreenshotQuality int             `json:"screenshotQuality,omitempty"`
}

// PushConfig configures a passive heartbeat monitor. HeartbeatSeconds and
// LastHeartbeatAt are filled in from the continuity record.
type PushConfig struct {
	HeartbeatSeconds *int    `json:"heartbeatSeconds,omitempty"`
	LastHeartbeatAt  *string `json:"lastHeartbeatAt,omitempty"`
	GraceSeconds     int     `json:"graceSeconds,omitempty"`
}

func (*HTTPConfig) Kind() models.Kind        { return models.KindHTTP }
func (*TCPConfig) Kind() models.Kind         { return models.KindTCP }
func (*PingConfig) Kind() models.Kind        { return models.KindPing }
func (*DNSConfig) Kind() models.Kind         { return models.KindDNS }
func (*DockerConfig) Kind() models.Kind      { return models.KindDocker }
func (*CertificateConfig) Kind() models.Kind { return models.KindCertificate }
func (*DatabaseConfig) Kind() models.Kind    { return models.KindDatabase }
func (*GRPCConfig) Kind() models.Kind        { return models.KindGRPC }
func (*SyntheticConfig) Kind() models.Kind   { return models.KindSynthetic }
func (*PushConfig) Kind() models.Kind        { return models.KindPush }

// DecodeConfig converts a monitor's stored config map into the typed
// config for kind. A nil or empty map yields the zero config.
func DecodeConfig(kind models.Kind, raw map[string]interface{}) (KindConfig, error) {
	var cfg KindConfig
	switch kind {
	case models.KindHTTP:
		cfg = &HTTPConfig{}
	case models.KindTCP:
		cfg = &TCPConfig{}
	case models.KindPing:
		cfg = &PingConfig{}
	case models.KindDNS:
		cfg = &DNSConfig{}
	case models.KindDocker:
		cfg = &DockerConfig{}
	case models.KindCertificate:
		cfg = &CertificateConfig{}
	case models.KindDatabase:
		cfg = &DatabaseConfig{}
	case models.KindGRPC:
		cfg = &GRPCConfig{}
	case models.KindSynthetic:
		cfg = &SyntheticConfig{}
	case models.KindPush:
		cfg = &PushConfig{}
	default:
		return nil, fmt.Errorf("unknown monitor kind %q", kind)
	}

	if len(raw) == 0 {
		return cfg, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode %s config: %w", kind, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode %s config: %w", kind, err)
	}
	return cfg, nil
}

// EncodeConfig converts a typed config back into its map form
func EncodeConfig(cfg KindConfig) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
