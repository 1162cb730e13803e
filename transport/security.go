package transport

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateWebhookURL enforces the security floor of §4.2 for any
// webhook/notification callback URL the broader system might construct:
// HTTPS only, no private IPv4/IPv6 ranges, no .local/.internal/localhost
// hostnames. The transport package itself never fetches such URLs —
// push-notification delivery is a separate, out-of-scope subsystem —
// this is the validation hook that subsystem is expected to call.
func ValidateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("webhook url must use https: %q", raw)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("webhook url has no host: %q", raw)
	}
	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".local") || strings.HasSuffix(lower, ".internal") {
		return fmt.Errorf("webhook url host not allowed: %q", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if isDisallowedIP(ip) {
			return fmt.Errorf("webhook url resolves to a disallowed address: %q", host)
		}
	}
	return nil
}

func isDisallowedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		for _, block := range privateV4Blocks {
			if block.Contains(v4) {
				return true
			}
		}
		return false
	}
	// IPv6: reject unique local addresses (fc00::/7) in addition to the
	// loopback/link-local checks above.
	if ip.To16() != nil && privateV6Block.Contains(ip) {
		return true
	}
	return false
}

var privateV4Blocks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
)

var privateV6Block = mustParseCIDR("fc00::/7")

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		out = append(out, mustParseCIDR(c))
	}
	return out
}

func mustParseCIDR(cidr string) *net.IPNet {
	_, n, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err) // programmer error: the literal is malformed
	}
	return n
}
