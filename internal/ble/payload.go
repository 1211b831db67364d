// Package ble advertises each reading as a non-connectable BLE beacon.
//
// Manufacturer data (company 0xFFFF), little-endian:
//
//	[0:2]   magic 0x01 0xD0
//	[2:6]   device id   uint32
//	[6:10]  reading id  uint32
//	[10:14] temperature float32 °C
//	[14:18] pressure    float32 hPa
//	[18:22] humidity    float32 %RH
package ble

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"math"

	"cloudpico-node/internal/reading"
)

const (
	PayloadLen = 22
	CompanyID  = 0xFFFF

	magic0 = 0x01
	magic1 = 0xD0
)

// Payload is a decoded beacon.
type Payload struct {
	DeviceID    uint32
	ReadingID   uint32
	Temperature float64
	Pressure    float64
	Humidity    float64
}

func EncodePayload(dst *[PayloadLen]byte, deviceID, readingID uint32, r reading.Reading) {
	dst[0] = magic0
	dst[1] = magic1
	binary.LittleEndian.PutUint32(dst[2:6], deviceID)
	binary.LittleEndian.PutUint32(dst[6:10], readingID)
	binary.LittleEndian.PutUint32(dst[10:14], math.Float32bits(float32(r.Temperature)))
	binary.LittleEndian.PutUint32(dst[14:18], math.Float32bits(float32(r.Pressure)))
	binary.LittleEndian.PutUint32(dst[18:22], math.Float32bits(float32(r.Humidity)))
}

func DecodePayload(data []byte) (Payload, error) {
	if len(data) < PayloadLen {
		return Payload{}, fmt.Errorf("payload too short: %d", len(data))
	}
	if data[0] != magic0 || data[1] != magic1 {
		return Payload{}, fmt.Errorf("invalid magic: %02X %02X", data[0], data[1])
	}
	return Payload{
		DeviceID:    binary.LittleEndian.Uint32(data[2:6]),
		ReadingID:   binary.LittleEndian.Uint32(data[6:10]),
		Temperature: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[10:14]))),
		Pressure:    float64(math.Float32frombits(binary.LittleEndian.Uint32(data[14:18]))),
		Humidity:    float64(math.Float32frombits(binary.LittleEndian.Uint32(data[18:22]))),
	}, nil
}

// DeviceID compresses a board id to the 32-bit beacon id: the leading four
// bytes when the id is hex, an FNV hash otherwise.
func DeviceID(boardID string) uint32 {
	if len(boardID) >= 8 {
		if b, err := hex.DecodeString(boardID[:8]); err == nil {
			return binary.BigEndian.Uint32(b)
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(boardID))
	return h.Sum32()
}
