// Package bytesize parses the human-readable sizes used in vtable
// configuration files ("1Mi", "64KiB", "1048576").
package bytesize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ByteSize is a size in bytes. It decodes from plain numbers or from a number
// followed by a decimal (K, M, G, T) or binary (Ki, Mi, Gi, Ti) unit, with an
// optional trailing "B".
type ByteSize uint64

const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

var sizePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*([kmgt]i?)?b?\s*$`)

var multipliers = map[string]ByteSize{
	"":   B,
	"k":  KB,
	"m":  MB,
	"g":  GB,
	"t":  TB,
	"ki": KiB,
	"mi": MiB,
	"gi": GiB,
	"ti": TiB,
}

// Parse converts s to a ByteSize.
func Parse(s string) (ByteSize, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty byte size")
	}
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	mult := multipliers[strings.ToLower(m[2])]

	if strings.Contains(m[1], ".") {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
		}
		v := f * float64(mult)
		if v >= math.MaxUint64 {
			return 0, fmt.Errorf("byte size %q overflows", s)
		}
		return ByteSize(v), nil
	}

	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	if n > math.MaxUint64/uint64(mult) {
		return 0, fmt.Errorf("byte size %q overflows", s)
	}
	return ByteSize(n) * mult, nil
}

// UnmarshalText implements encoding.TextUnmarshaler so ByteSize can be decoded
// by mapstructure and yaml.
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// MarshalText writes the size in binary units when it is an exact multiple,
// otherwise as a plain byte count, so that it parses back to the same value.
func (b ByteSize) MarshalText() ([]byte, error) {
	for _, u := range []struct {
		size ByteSize
		name string
	}{{TiB, "Ti"}, {GiB, "Gi"}, {MiB, "Mi"}, {KiB, "Ki"}} {
		if b >= u.size && b%u.size == 0 {
			return []byte(strconv.FormatUint(uint64(b/u.size), 10) + u.name), nil
		}
	}
	return []byte(strconv.FormatUint(uint64(b), 10)), nil
}

// String returns a human-readable IEC representation ("1.0 MiB").
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Int returns the size as an int, saturating at math.MaxInt.
func (b ByteSize) Int() int {
	if uint64(b) > math.MaxInt {
		return math.MaxInt
	}
	return int(b)
}
