package discovery

import (
	"context"
	"net"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browse behavior.
type BrowserConfig struct {
	// Interface specifies which network interface to browse on.
	// Empty string means all interfaces.
	Interface string
}

// Browse searches for gates on the local network. Discovered gates are
// delivered on the returned channel until ctx is cancelled.
// Entries seen on multiple interfaces are aggregated by instance name -
// addresses are merged into a single Gate.
func Browse(ctx context.Context, config BrowserConfig) (<-chan *Gate, error) {
	out := make(chan *Gate)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := browserOptions(config)

	// Process entries with aggregation
	go func() {
		defer close(out)

		// Track gates by instance name, aggregating addresses
		gates := make(map[string]*Gate)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				gate := entryToGate(entry)
				if gate == nil {
					continue
				}

				existing, found := gates[gate.InstanceName]
				if found {
					// Merge addresses into existing entry
					existing.Addresses = mergeAddresses(existing.Addresses, gate.Addresses)
					continue
				}

				// New gate - store and emit
				gates[gate.InstanceName] = gate
				select {
				case out <- gate:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				// Remove addresses that came from this interface
				if existing, found := gates[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					// If no addresses remain, forget the gate
					if len(existing.Addresses) == 0 {
						delete(gates, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// Start browsing in background
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// Find browses until a gate with the given fingerprint appears.
// Returns when found or when the context is cancelled.
func Find(ctx context.Context, config BrowserConfig, fingerprint string) (*Gate, error) {
	results, err := Browse(ctx, config)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case gate, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if gate.Fingerprint == fingerprint {
				return gate, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// browserOptions returns zeroconf client options based on config.
func browserOptions(config BrowserConfig) []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	// Select specific interface if configured
	if config.Interface != "" {
		iface, err := net.InterfaceByName(config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// ServiceEntry is a transport-neutral view of one resolved mDNS entry.
type ServiceEntry struct {
	Instance string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToGate converts a resolved entry into a Gate. Entries with missing or
// malformed TXT records are rejected.
func (e *ServiceEntry) ToGate() (*Gate, error) {
	info, err := DecodeTXT(StringsToTXTRecords(e.Text))
	if err != nil {
		return nil, err
	}

	return &Gate{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    e.Addrs,
		Fingerprint:  info.Fingerprint,
		TLSVersion:   info.TLSVersion,
		ClientAuth:   info.ClientAuth,
	}, nil
}

// entryToGate converts a zeroconf entry, dropping malformed ones.
func entryToGate(entry *zeroconf.ServiceEntry) *Gate {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	e := &ServiceEntry{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
		Addrs:    addrs,
	}

	gate, err := e.ToGate()
	if err != nil {
		return nil
	}
	return gate
}

// mergeAddresses adds new addresses to the existing list, avoiding
// duplicates.
func mergeAddresses(existing, found []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range found {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the addresses carried by a removal entry.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
