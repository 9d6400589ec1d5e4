package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"syscall"
)

// dial bootstraps the plain or TLS transport per the configuration.
func dial(ctx context.Context, cfg *Config) (net.Conn, error) {
	d := &net.Dialer{
		Timeout: cfg.DialTimeout(),
		Control: setSocketOptions,
	}

	conn, err := d.DialContext(ctx, "tcp", cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Address(), err)
	}

	if cfg.Security.Mode != SecurityTLS {
		return conn, nil
	}

	tlsConn := tls.Client(conn, tlsClientConfig(cfg))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", cfg.Address(), err)
	}
	return tlsConn, nil
}

// setSocketOptions enables SO_REUSEADDR and TCP_NODELAY on the raw socket
// before connecting.
func setSocketOptions(network, address string, c syscall.RawConn) error {
	var optErr error
	err := c.Control(func(fd uintptr) {
		if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
			optErr = err
			return
		}
		optErr = syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1)
	})
	if err != nil {
		return err
	}
	return optErr
}

// tlsClientConfig builds the client TLS configuration. SNI falls back to the
// server host; certificate verification follows the host defaults unless
// explicitly disabled.
func tlsClientConfig(cfg *Config) *tls.Config {
	serverName := cfg.Security.ServerName
	if serverName == "" {
		serverName = cfg.Server.Host
	}
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         serverName,
		InsecureSkipVerify: cfg.Security.InsecureSkipVerify,
	}
}
