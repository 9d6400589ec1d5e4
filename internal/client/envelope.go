package client

import (
	"strings"

	"github.com/google/uuid"
)

// NewEnvelopeID mints an identifier suitable for the ENVID parameter of
// MAIL FROM. The value stays within the xtext alphabet of RFC 3461, so it
// needs no hex-escaping on the wire.
func NewEnvelopeID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}
