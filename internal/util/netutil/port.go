// Package netutil waits for TCP endpoints to accept connections.
package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// PollInterval is the delay between two dial attempts.
var PollInterval = time.Second

const dialTimeout = 2 * time.Second

// WaitForPort blocks until host:port accepts a TCP connection. It gives up
// when timeout elapses or ctx is done, whichever comes first.
func WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	address := net.JoinHostPort(host, strconv.Itoa(port))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := net.Dialer{Timeout: dialTimeout}
	var lastErr error
	for {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("timeout waiting for %s: %w", address, lastErr)
			}
			return ctx.Err()
		case <-time.After(PollInterval):
		}
	}
}
