// Package memlimit detects the memory available to the process and converts
// byte sizes between text and integer forms. The resolution engine's memory
// controller uses the detected limit to pick a default pressure threshold.
package memlimit

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/procfs"
)

const (
	// cgroupV2MemMax is the cgroup v2 memory limit file.
	cgroupV2MemMax = "/sys/fs/cgroup/memory.max"
	// cgroupV1MemLimit is the cgroup v1 memory limit file.
	cgroupV1MemLimit = "/sys/fs/cgroup/memory/memory.limit_in_bytes"
)

// DetectAvailable detects the available memory limit from the environment.
// It checks in order: cgroups v2, cgroups v1, total system memory.
// Returns 0 if detection fails.
func DetectAvailable() int64 {
	if limit := readCgroupV2(); limit > 0 {
		return limit
	}
	if limit := readCgroupV1(); limit > 0 {
		return limit
	}
	if limit := readSystemTotal(); limit > 0 {
		return limit
	}
	return 0
}

// readCgroupV2 reads the memory limit from cgroup v2.
// Returns 0 if not available or unlimited ("max").
func readCgroupV2() int64 {
	data, err := os.ReadFile(cgroupV2MemMax)
	if err != nil {
		return 0
	}

	content := strings.TrimSpace(string(data))
	if content == "max" {
		return 0 // unlimited
	}

	limit, err := strconv.ParseInt(content, 10, 64)
	if err != nil {
		return 0
	}
	return limit
}

// readCgroupV1 reads the memory limit from cgroup v1.
// Returns 0 if not available or effectively unlimited.
func readCgroupV1() int64 {
	data, err := os.ReadFile(cgroupV1MemLimit)
	if err != nil {
		return 0
	}

	limit, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}

	// cgroup v1 uses a very large number to indicate unlimited. Consider
	// anything over 1 exabyte as unlimited.
	if limit > 1<<60 {
		return 0
	}
	return limit
}

// readSystemTotal reads MemTotal via procfs. This is the fallback for
// environments where cgroups don't reflect the real limit.
func readSystemTotal() int64 {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return 0
	}

	info, err := fs.Meminfo()
	if err != nil || info.MemTotal == nil {
		return 0
	}

	// Meminfo reports kB.
	return int64(*info.MemTotal) * 1024
}

// FormatBytes formats bytes as a human-readable string using IEC binary
// units. For logs only; machine-parsed values use raw integer bytes.
func FormatBytes(bytes int64) string {
	const (
		KiB = 1024
		MiB = KiB * 1024
		GiB = MiB * 1024
	)

	switch {
	case bytes >= GiB:
		return fmt.Sprintf("%.2fGiB", float64(bytes)/GiB)
	case bytes >= MiB:
		return fmt.Sprintf("%.2fMiB", float64(bytes)/MiB)
	case bytes >= KiB:
		return fmt.Sprintf("%.2fKiB", float64(bytes)/KiB)
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

// ParseBytes parses a byte size string with optional suffix.
//
// Supported suffixes:
//   - Decimal (1000-based): KB, MB, GB, TB
//   - Binary (1024-based): KiB, MiB, GiB, TiB (also Ki, Mi, Gi, Ti and K, M, G, T)
//   - No suffix or "B": raw bytes
//   - "off": returns (0, nil)
//
// Only integer values are accepted. Decimal points (e.g., "1.5GiB") are rejected.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}

	if strings.EqualFold(s, "off") {
		return 0, nil
	}

	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9') {
		i++
	}

	if i == 0 {
		return 0, fmt.Errorf("no numeric value found in %q", s)
	}

	if i < len(s) && s[i] == '.' {
		return 0, fmt.Errorf("decimal values not supported in %q; use integer bytes", s)
	}

	numStr := s[:i]
	suffix := strings.TrimSpace(s[i:])

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in %q: %w", s, err)
	}

	var multiplier int64 = 1
	switch strings.ToUpper(suffix) {
	case "", "B":
		multiplier = 1
	// Decimal (1000-based)
	case "KB":
		multiplier = 1000
	case "MB":
		multiplier = 1000 * 1000
	case "GB":
		multiplier = 1000 * 1000 * 1000
	case "TB":
		multiplier = 1000 * 1000 * 1000 * 1000
	// Binary (1024-based) - IEC standard
	case "KIB", "KI", "K":
		multiplier = 1024
	case "MIB", "MI", "M":
		multiplier = 1024 * 1024
	case "GIB", "GI", "G":
		multiplier = 1024 * 1024 * 1024
	case "TIB", "TI", "T":
		multiplier = 1024 * 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown suffix %q in %q", suffix, s)
	}

	if num > 0 && multiplier > 1 {
		maxSafe := (1<<63 - 1) / multiplier
		if num > maxSafe {
			return 0, fmt.Errorf("value %q too large: would overflow int64", s)
		}
	}

	return num * multiplier, nil
}
