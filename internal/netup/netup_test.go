package netup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWait_LoopbackTargetSkips(t *testing.T) {
	w := Waiter{
		List:   func() ([]string, error) { t.Fatal("List called for loopback target"); return nil, nil },
		Logger: quiet,
	}
	for _, host := range []string{"127.0.0.1", "localhost", "::1"} {
		if _, err := w.Wait(context.Background(), host, time.Millisecond); err != nil {
			t.Fatalf("Wait(%q): %v", host, err)
		}
	}
}

func TestWait_ReturnsOnceAddressAppears(t *testing.T) {
	calls := 0
	w := Waiter{
		List: func() ([]string, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("not yet")
			}
			return []string{"wlan0/192.168.1.40"}, nil
		},
		Poll:   time.Millisecond,
		Logger: quiet,
	}

	addr, err := w.Wait(context.Background(), "10.0.0.5", time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if addr != "wlan0/192.168.1.40" || calls != 3 {
		t.Fatalf("addr=%q calls=%d", addr, calls)
	}
}

func TestWait_TimesOut(t *testing.T) {
	w := Waiter{
		List:   func() ([]string, error) { return nil, nil },
		Poll:   time.Millisecond,
		Logger: quiet,
	}

	start := time.Now()
	_, err := w.Wait(context.Background(), "10.0.0.5", 20*time.Millisecond)
	if !errors.Is(err, ErrNoNetwork) {
		t.Fatalf("err=%v want ErrNoNetwork", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("took %s", time.Since(start))
	}
}

func TestWait_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := Waiter{List: func() ([]string, error) { return nil, nil }, Logger: quiet}

	if _, err := w.Wait(ctx, "10.0.0.5", time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}
