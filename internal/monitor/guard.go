package monitor

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
	"syscall"
)

// metadataPrefixes are cloud instance metadata ranges, never probed
var metadataPrefixes = []netip.Prefix{
	netip.MustParsePrefix("169.254.169.254/32"), // AWS, Azure, GCP
	netip.MustParsePrefix("169.254.170.2/32"),   // AWS ECS
	netip.MustParsePrefix("fd00:ec2::254/128"),  // AWS IMDS over IPv6
}

var metadataHostnames = []string{"metadata.google.internal"}

// AddressGuard restricts which addresses outbound HTTP probes may connect
// to. It checks the resolved address at dial time so DNS rebinding cannot
// bypass it.
type AddressGuard struct {
	blockPrivate bool
}

// NewAddressGuard creates a guard. Metadata endpoints are always refused;
// private, loopback and link-local targets only when blockPrivate is set.
func NewAddressGuard(blockPrivate bool) *AddressGuard {
	return &AddressGuard{blockPrivate: blockPrivate}
}

// CheckHost refuses hostnames that name a metadata service
func (g *AddressGuard) CheckHost(hostname string) error {
	hostname = strings.TrimSuffix(strings.ToLower(hostname), ".")
	for _, blocked := range metadataHostnames {
		if hostname == blocked {
			return fmt.Errorf("target %s is a metadata endpoint", hostname)
		}
	}
	return nil
}

// CheckAddr validates a resolved address
func (g *AddressGuard) CheckAddr(addr netip.Addr) error {
	addr = addr.Unmap()
	for _, p := range metadataPrefixes {
		if p.Contains(addr) {
			return fmt.Errorf("address %s is a metadata endpoint", addr)
		}
	}
	if !g.blockPrivate {
		return nil
	}

	switch {
	case addr.IsLoopback():
		return fmt.Errorf("loopback address %s is not allowed", addr)
	case addr.IsPrivate():
		return fmt.Errorf("private address %s is not allowed", addr)
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return fmt.Errorf("link-local address %s is not allowed", addr)
	case addr.IsMulticast():
		return fmt.Errorf("multicast address %s is not allowed", addr)
	case addr.IsUnspecified():
		return fmt.Errorf("unspecified address %s is not allowed", addr)
	}
	return nil
}

// Control is a net.Dialer control hook enforcing CheckAddr
func (g *AddressGuard) Control(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("unexpected dial address %q: %w", address, err)
	}
	return g.CheckAddr(addr)
}
