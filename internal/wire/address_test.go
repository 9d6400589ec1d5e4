package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePathAddress(t *testing.T) {
	addr, err := ParsePathAddress("<user@example.com>")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", addr.Raw())
	assert.Equal(t, "<user@example.com>", addr.String())
}

func TestParsePathAddressBareForm(t *testing.T) {
	addr, err := ParsePathAddress("user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "<user@example.com>", addr.String())
}

func TestParsePathAddressErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no at sign", "<userexample.com>"},
		{"two at signs", "<a@b@c>"},
		{"empty local part", "<@example.com>"},
		{"empty domain", "<user@>"},
		{"empty brackets", "<>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePathAddress(tt.input)
			require.Error(t, err)
			var addrErr *AddressError
			assert.ErrorAs(t, err, &addrErr)
		})
	}
}

func TestParsePathAddressEmpty(t *testing.T) {
	_, err := ParsePathAddress("")
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestParseClientIdentity(t *testing.T) {
	tests := []struct {
		input string
		kind  IdentityKind
	}{
		{"192.168.1.10", IdentityIPv4},
		{"127.0.0.1", IdentityIPv4},
		{"::1", IdentityIPv6},
		{"2001:db8::68", IdentityIPv6},
		{"::ffff:10.0.0.1", IdentityIPv6},
		{"mail.example.com", IdentityDomain},
		{"localhost", IdentityDomain},
		{"300.1.1.1", IdentityDomain},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id := ParseClientIdentity(tt.input)
			assert.Equal(t, tt.kind, id.Kind)
			assert.Equal(t, tt.input, id.Value)
		})
	}
}
