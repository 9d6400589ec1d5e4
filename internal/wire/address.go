package wire

import (
	"net"
	"strings"
)

// PathAddress is a parsed mailbox used as a reverse-path or forward-path.
// The raw value always contains exactly one '@'; angle brackets are stripped
// during parsing and re-added when rendered. Immutable after construction.
type PathAddress struct {
	raw string
}

// ParsePathAddress parses "<local@domain>" or "local@domain" into a PathAddress.
func ParsePathAddress(s string) (PathAddress, error) {
	if s == "" {
		return PathAddress{}, ErrAddressNotFound
	}

	inner := s
	if strings.HasPrefix(inner, "<") && strings.HasSuffix(inner, ">") {
		inner = inner[1 : len(inner)-1]
	}

	if strings.Count(inner, "@") != 1 {
		return PathAddress{}, &AddressError{Value: s}
	}
	at := strings.IndexByte(inner, '@')
	if at == 0 || at == len(inner)-1 {
		return PathAddress{}, &AddressError{Value: s}
	}

	return PathAddress{raw: inner}, nil
}

// Raw returns the bare "local@domain" form without angle brackets.
func (a PathAddress) Raw() string {
	return a.raw
}

// String renders the address for the wire, angle brackets included.
func (a PathAddress) String() string {
	return "<" + a.raw + ">"
}

// IsZero reports whether the address is the zero value.
func (a PathAddress) IsZero() bool {
	return a.raw == ""
}

// IdentityKind classifies the client identity sent with HELO/EHLO.
type IdentityKind int

const (
	IdentityDomain IdentityKind = iota
	IdentityIPv4
	IdentityIPv6
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityIPv4:
		return "ipv4"
	case IdentityIPv6:
		return "ipv6"
	default:
		return "domain"
	}
}

// ClientIdentity is the argument of HELO/EHLO: an IPv4 literal, an IPv6
// literal, or a domain name. Anything that is not an IP literal is treated as
// a domain with no further validation.
type ClientIdentity struct {
	Kind  IdentityKind
	Value string
}

// ParseClientIdentity classifies s as IPv4, IPv6, or domain. It never fails.
func ParseClientIdentity(s string) ClientIdentity {
	if ip := net.ParseIP(s); ip != nil {
		if ip.To4() != nil && !strings.Contains(s, ":") {
			return ClientIdentity{Kind: IdentityIPv4, Value: s}
		}
		return ClientIdentity{Kind: IdentityIPv6, Value: s}
	}
	return ClientIdentity{Kind: IdentityDomain, Value: s}
}

// Domain constructs a domain identity.
func Domain(s string) ClientIdentity {
	return ClientIdentity{Kind: IdentityDomain, Value: s}
}

func (ci ClientIdentity) String() string {
	return ci.Value
}
