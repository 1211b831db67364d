package identity

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestFromMachineID(t *testing.T) {
	got, err := FromMachineID("e6614103e7452d2f9c1b3a5d7e8f0123\n")
	if err != nil {
		t.Fatalf("FromMachineID: %v", err)
	}
	if got != "E6614103E7452D2F" {
		t.Fatalf("id = %q", got)
	}
}

func TestFromMachineID_Malformed(t *testing.T) {
	for _, in := range []string{"", "abc", "zz614103e7452d2f9c1b3a5d7e8f0123"} {
		if _, err := FromMachineID(in); !errors.Is(err, ErrMalformedMachineID) {
			t.Errorf("FromMachineID(%q) err = %v", in, err)
		}
	}
}

func TestResolve(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	path := filepath.Join(dir, "machine-id")
	if err := os.WriteFile(path, []byte("0123456789abcdef0123456789abcdef\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("override wins", func(t *testing.T) {
		got, err := Resolve("NODE-1", path, logger)
		if err != nil || got != "NODE-1" {
			t.Fatalf("got %q err %v", got, err)
		}
	})

	t.Run("machine id", func(t *testing.T) {
		got, err := Resolve("", path, logger)
		if err != nil || got != "0123456789ABCDEF" {
			t.Fatalf("got %q err %v", got, err)
		}
	})

	t.Run("hostname fallback", func(t *testing.T) {
		got, err := Resolve("", filepath.Join(dir, "absent"), logger)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		host, _ := os.Hostname()
		if got != FromHostname(host) || len(got) != 2*Len {
			t.Fatalf("got %q", got)
		}
	})
}

func TestHex(t *testing.T) {
	if got := Hex([]byte{0x00, 0xAB, 0x0F, 0xF0}); got != "00AB0FF0" {
		t.Fatalf("Hex = %q", got)
	}
}
