// Package netinfo reports the host's network state: Wi-Fi signal strength,
// local address and the pi-helper network summary.
package netinfo

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/sweeney/proximity-switch/internal/status"
)

// pi-helper env var names (written to /run/pi-helper.env).
const (
	EnvNetworkType       = "NETWORK_TYPE"
	EnvNetworkIP         = "NETWORK_IP"
	EnvNetworkStatus     = "NETWORK_STATUS"
	EnvNetworkGateway    = "NETWORK_GATEWAY"
	EnvNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	EnvNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// DefaultWirelessPath is the kernel's wireless statistics table.
const DefaultWirelessPath = "/proc/net/wireless"

// ErrNoWireless is returned when no wireless interface is reported.
var ErrNoWireless = errors.New("no wireless interface")

// ErrNoAddress is returned when no non-loopback IPv4 address is found.
var ErrNoAddress = errors.New("no local address")

// Provider reads network state from the environment, procfs and the
// interface table.
type Provider struct {
	// Interface restricts lookups to one interface; empty means any.
	Interface string

	WirelessPath string
	Getenv       func(string) string
	Addrs        func(iface string) ([]net.Addr, error)
}

// New creates a Provider for the given interface name (may be empty).
func New(iface string) *Provider {
	return &Provider{
		Interface:    iface,
		WirelessPath: DefaultWirelessPath,
		Getenv:       os.Getenv,
		Addrs:        interfaceAddrs,
	}
}

// SignalStrength returns the link level in dBm (normally negative).
func (p *Provider) SignalStrength() (int, error) {
	f, err := os.Open(p.WirelessPath)
	if err != nil {
		return 0, fmt.Errorf("open wireless stats: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name, rest, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if p.Interface != "" && name != p.Interface {
			continue
		}
		// status, link, level, noise, ...
		fields := strings.Fields(rest)
		if len(fields) < 3 {
			continue
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "."), 64)
		if err != nil {
			return 0, fmt.Errorf("parse level for %s: %w", name, err)
		}
		return int(level), nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read wireless stats: %w", err)
	}
	return 0, ErrNoWireless
}

// LocalAddress returns the IPv4 address pi-helper reports, falling back to
// the first non-loopback address on the interface.
func (p *Provider) LocalAddress() (string, error) {
	if ip := p.Getenv(EnvNetworkIP); ip != "" {
		return ip, nil
	}

	addrs, err := p.Addrs(p.Interface)
	if err != nil {
		return "", fmt.Errorf("list addresses: %w", err)
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return "", ErrNoAddress
}

// Info returns the pi-helper network summary, or nil when pi-helper has not
// written one.
func (p *Provider) Info() *status.NetworkInfo {
	s := p.Getenv(EnvNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       p.Getenv(EnvNetworkType),
		IP:         p.Getenv(EnvNetworkIP),
		Status:     s,
		Gateway:    p.Getenv(EnvNetworkGateway),
		WifiStatus: p.Getenv(EnvNetworkWifiStatus),
		SSID:       p.Getenv(EnvNetworkWifiSSID),
	}
}

func interfaceAddrs(name string) ([]net.Addr, error) {
	if name == "" {
		return net.InterfaceAddrs()
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return iface.Addrs()
}
