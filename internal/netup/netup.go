// Package netup blocks startup until the host has a usable network address.
package netup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

var ErrNoNetwork = errors.New("netup: no network address before deadline")

// Waiter polls List until it reports at least one address.
type Waiter struct {
	// List returns the candidate addresses. Defaults to UpAddrs.
	List   func() ([]string, error)
	Poll   time.Duration
	Logger *slog.Logger
}

// Wait returns the first address found. Targets on the loopback network need
// no external interface and return immediately.
func (w Waiter) Wait(ctx context.Context, targetHost string, timeout time.Duration) (string, error) {
	if IsLoopback(targetHost) {
		return "loopback", nil
	}
	list := w.List
	if list == nil {
		list = UpAddrs
	}
	poll := w.Poll
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info("waiting for network", "timeout", timeout)
	t := time.NewTicker(poll)
	defer t.Stop()
	for {
		addrs, err := list()
		if err != nil {
			logger.Debug("list interfaces failed", "err", err)
		}
		if len(addrs) > 0 {
			logger.Info("network up", "addr", addrs[0])
			return addrs[0], nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w (waited %v)", ErrNoNetwork, timeout)
			}
			return "", ctx.Err()
		case <-t.C:
		}
	}
}

// UpAddrs lists the unicast addresses of every up, non-loopback interface.
func UpAddrs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	var out []string
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipn, ok := a.(*net.IPNet)
			if !ok || ipn.IP.IsLoopback() || ipn.IP.IsLinkLocalUnicast() {
				continue
			}
			out = append(out, ifc.Name+"/"+ipn.IP.String())
		}
	}
	return out, nil
}

func IsLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
