package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekuonline/uptivalab/internal/models"
)

func TestAddressGuard_CheckAddr(t *testing.T) {
	open := NewAddressGuard(false)
	strict := NewAddressGuard(true)

	tests := []struct {
		addr      string
		openErr   bool
		strictErr bool
	}{
		{addr: "169.254.169.254", openErr: true, strictErr: true},
		{addr: "::ffff:169.254.169.254", openErr: true, strictErr: true},
		{addr: "fd00:ec2::254", openErr: true, strictErr: true},
		{addr: "10.1.2.3", strictErr: true},
		{addr: "192.168.1.10", strictErr: true},
		{addr: "127.0.0.1", strictErr: true},
		{addr: "::1", strictErr: true},
		{addr: "fe80::1", strictErr: true},
		{addr: "0.0.0.0", strictErr: true},
		{addr: "93.184.216.34"},
		{addr: "2606:4700::1111"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			addr := netip.MustParseAddr(tt.addr)
			assert.Equal(t, tt.openErr, open.CheckAddr(addr) != nil)
			assert.Equal(t, tt.strictErr, strict.CheckAddr(addr) != nil)
		})
	}
}

func TestAddressGuard_CheckHost(t *testing.T) {
	g := NewAddressGuard(false)
	assert.Error(t, g.CheckHost("Metadata.Google.Internal."))
	assert.NoError(t, g.CheckHost("example.com"))
}

func TestHTTPProbe_GuardRefusesPrivateTargets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	probe := NewHTTPProbe(NewAddressGuard(true))
	res, err := probe.Check(context.Background(), &CheckRequest{
		ID: 1, Kind: models.KindHTTP, Timeout: 2 * time.Second,
		Config: &HTTPConfig{URL: srv.URL},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDown, res.Status)
	assert.Contains(t, res.Message, "loopback")
}
