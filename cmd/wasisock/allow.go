package main

import (
	"fmt"
	"net/netip"
	"strings"

	sockaddr "github.com/hashicorp/go-sockaddr"
	"github.com/hashicorp/go-sockaddr/template"
)

// privateKeyword grants the host's private address.
const privateKeyword = "private"

// parseAllow turns a comma separated -allow value into prefixes. Entries
// may be CIDR ranges, bare addresses, the keyword "private" or a
// go-sockaddr template such as {{ GetAllInterfaces | include "flags" "loopback" | join "address" " " }}.
func parseAllow(s string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range splitAllow(s) {
		switch {
		case item == privateKeyword:
			ip, err := sockaddr.GetPrivateIP()
			if err != nil {
				return nil, fmt.Errorf("resolve private address: %w", err)
			}
			if ip == "" {
				return nil, fmt.Errorf("resolve private address: none found")
			}
			p, err := parsePrefix(ip)
			if err != nil {
				return nil, err
			}
			out = append(out, p)

		case strings.HasPrefix(item, "{{"):
			rendered, err := template.Parse(item)
			if err != nil {
				return nil, fmt.Errorf("allow template %q: %w", item, err)
			}
			for _, field := range strings.Fields(rendered) {
				p, err := parsePrefix(field)
				if err != nil {
					return nil, fmt.Errorf("allow template %q: %w", item, err)
				}
				out = append(out, p)
			}

		default:
			p, err := parsePrefix(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// splitAllow splits on commas outside template braces.
func splitAllow(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	flush := func(end int) {
		if item := strings.TrimSpace(s[start:end]); item != "" {
			out = append(out, item)
		}
	}
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "{{"):
			depth++
			i++
		case strings.HasPrefix(s[i:], "}}") && depth > 0:
			depth--
			i++
		case s[i] == ',' && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(s))
	return out
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("allow %q: %w", s, err)
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("allow %q: %w", s, err)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
