// Package identity derives the node's board identifier.
package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"strings"
)

const DefaultMachineIDPath = "/etc/machine-id"

// Len is the identifier length in bytes.
const Len = 8

var ErrMalformedMachineID = errors.New("identity: malformed machine id")

// Resolve returns override when set, otherwise the board id derived from
// machineIDPath, falling back to a hash of the hostname.
func Resolve(override, machineIDPath string, logger *slog.Logger) (string, error) {
	if override != "" {
		return override, nil
	}
	id, err := FromMachineIDFile(machineIDPath)
	if err == nil {
		return id, nil
	}
	logger.Warn("machine id unavailable, deriving board id from hostname", "path", machineIDPath, "err", err)

	host, herr := os.Hostname()
	if herr != nil {
		return "", fmt.Errorf("board id: %w", errors.Join(err, herr))
	}
	return FromHostname(host), nil
}

func FromMachineIDFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return FromMachineID(string(raw))
}

// FromMachineID takes the first Len bytes of a hex machine id.
func FromMachineID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2*Len {
		return "", fmt.Errorf("%w: %d hex digits", ErrMalformedMachineID, len(s))
	}
	b, err := hex.DecodeString(s[:2*Len])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedMachineID, err)
	}
	return Hex(b), nil
}

func FromHostname(host string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(host))
	return Hex(h.Sum(nil))
}

// Hex formats b as uppercase hexadecimal.
func Hex(b []byte) string {
	const hexd = "0123456789ABCDEF"
	out := make([]byte, 0, len(b)*2)
	for _, x := range b {
		out = append(out, hexd[x>>4], hexd[x&0x0F])
	}
	return string(out)
}
