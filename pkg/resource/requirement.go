package resource

import (
	"strconv"
	"strings"

	"github.com/prowlsec/prowl/pkg/plugin"
)

// Defaults applied when a plugin's declaration is absent or unparseable.
// Admission checks must remain total over arbitrary declared strings, so
// parsing never fails; it falls back here instead.
const (
	DefaultMemoryMB = 100
	DefaultCPUCores = 0.5
	DefaultDiskMB   = 10
)

// Requirement is the normalized resource requirement derived from a raw
// declaration. It is constructed at admission-check time, immutable, and
// discarded after the check.
type Requirement struct {
	MemoryMB int64   `json:"memory_mb"`
	CPUCores float64 `json:"cpu_cores"`
	DiskMB   int64   `json:"disk_mb"`
	Network  bool    `json:"network"`
}

// FromDeclaration normalizes a plugin's declared resources, applying the
// documented defaults for missing or invalid fields.
func FromDeclaration(d plugin.ResourceDeclaration) *Requirement {
	cpu := d.CPU
	if cpu <= 0 {
		cpu = DefaultCPUCores
	}

	disk := int64(DefaultDiskMB)
	if d.Disk != "" {
		disk = ParseMemoryMB(d.Disk)
	}

	return &Requirement{
		MemoryMB: ParseMemoryMB(d.Memory),
		CPUCores: cpu,
		DiskMB:   disk,
		Network:  d.Network,
	}
}

// ParseMemoryMB parses a magnitude string like "2G" or "500MB" into
// megabytes. Two-letter suffixes are checked before one-letter ones so "2GB"
// is not read as "2G" + stray "B". A bare number is taken as megabytes.
// Unparseable input returns DefaultMemoryMB rather than an error.
func ParseMemoryMB(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))

	type unit struct {
		suffix string
		factor float64
	}
	// Longest, most specific suffix first.
	units := []unit{
		{"GB", 1024},
		{"G", 1024},
		{"MB", 1},
		{"M", 1},
		{"KB", 1.0 / 1024},
		{"K", 1.0 / 1024},
	}

	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			v, err := strconv.ParseFloat(strings.TrimSuffix(s, u.suffix), 64)
			if err != nil || v < 0 {
				return DefaultMemoryMB
			}
			return int64(v * u.factor)
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return DefaultMemoryMB
	}
	return int64(v)
}
