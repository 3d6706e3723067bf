package evaluator

import (
	"context"
	"net/netip"
	"strings"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// parseRange accepts a CIDR block, host bits allowed, or a single address.
// A bare address is a one-host range, matching the IP address fallback of
// MediaWiki's range parser.
func parseRange(s string) (netip.Prefix, bool) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, false
		}
		addr := p.Addr()
		if addr.Is4In6() {
			bits := p.Bits() - 96
			if bits < 0 {
				return netip.Prefix{}, false
			}
			p = netip.PrefixFrom(addr.Unmap(), bits)
		}
		return p.Masked(), true
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, false
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), true
}

// ipInRanges reports whether ip lies in any of ranges. Every range is
// validated even after a match; an unparseable ip is never in range.
func ipInRanges(call *Call, ip string, ranges []types.Value) (types.Value, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	valid := err == nil
	addr = addr.Unmap()

	matched := false
	for _, r := range ranges {
		raw := r.ToString()
		prefix, ok := parseRange(raw)
		if !ok {
			return types.NullValue, call.Error(types.ErrInvalidIPRange, raw)
		}
		if valid && prefix.Contains(addr) {
			matched = true
		}
	}
	return types.NewBool(matched), nil
}

func fnIPInRange(_ context.Context, call *Call) (types.Value, error) {
	return ipInRanges(call, call.Arg(0).ToString(), call.Args[1:2])
}

func fnIPInRanges(_ context.Context, call *Call) (types.Value, error) {
	return ipInRanges(call, call.Arg(0).ToString(), call.Args[1:])
}
