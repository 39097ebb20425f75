// Package uuid provides identifier generation for FarmTrack records.
//
// Two identifier families exist:
//   - UUID v4 for permanent record ids assigned locally.
//   - Prefixed ids of the form "<prefix>_<unixms>_<suffix>" used for queue
//     entries, temporary (pre-sync) record ids, and device identifiers.
package uuid

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TempPrefix marks a client-assigned placeholder id. An entry whose payload
// carries a temp id has never been seen by the hosted backend and must be
// created there rather than updated.
const TempPrefix = "temp_"

// DevicePrefix marks a device/session identifier.
const DevicePrefix = "device_"

var uuidV4Regex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// New generates a new UUID v4.
func New() string {
	return uuid.New().String()
}

// IsValid checks if a string is a valid UUID v4.
func IsValid(s string) bool {
	return uuidV4Regex.MatchString(s)
}

// Validate returns an error if the string is not a valid UUID v4.
func Validate(s string) error {
	if !IsValid(s) {
		return fmt.Errorf("invalid UUID v4 format: %q", s)
	}
	return nil
}

// NewPrefixed builds an id of the form "<prefix>_<unixms>_<suffix>".
// The millisecond timestamp keeps ids of the same prefix roughly sortable
// by creation time; the random suffix disambiguates same-millisecond ids.
func NewPrefixed(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), randomSuffix(9))
}

// NewTemp generates a temporary record id for a not-yet-synced creation.
func NewTemp() string {
	return NewPrefixed("temp")
}

// NewDeviceID generates a device/session identifier.
func NewDeviceID() string {
	return NewPrefixed("device")
}

// IsTemp reports whether id is a temporary (pre-sync) record id.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

// randomSuffix returns n random characters from a lowercase base36 alphabet.
func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms; fall back to a
		// timestamp-derived suffix rather than panic in id generation.
		return fmt.Sprintf("%09d", time.Now().UnixNano()%1e9)
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(buf)
}
