package config

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvOverrides holds the environment variables spec §6.1 defines. A nil
// pointer field means "absent"; the Runner falls back to a default or an
// RNG draw in that case.
type EnvOverrides struct {
	Seed      uint64
	SeedFixed bool

	Runs        uint64
	MaxParallel uint64
	HasParallel bool

	Duration  *time.Duration
	Unbounded bool

	EpochOffsetMs  *uint64
	StepMultiplier *uint64

	BankerCount *uint64

	NoTUI   bool
	LogSpec string
}

// LoadEnv parses spec §6.1's environment variables. A malformed value is a
// ConfigError, fatal at process start.
func LoadEnv() (*EnvOverrides, error) {
	o := &EnvOverrides{Runs: 1, Unbounded: true}

	if v, ok := os.LookupEnv("SIMULATOR_SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, newConfigError("SIMULATOR_SEED", err)
		}
		o.Seed = seed
		o.SeedFixed = true
	} else {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, newConfigError("SIMULATOR_SEED", err)
		}
		o.Seed = binary.LittleEndian.Uint64(buf[:])
	}

	if v, ok := os.LookupEnv("SIMULATOR_RUNS"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, newConfigError("SIMULATOR_RUNS", err)
		}
		o.Runs = n
	}

	if v, ok := os.LookupEnv("SIMULATOR_MAX_PARALLEL"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, newConfigError("SIMULATOR_MAX_PARALLEL", err)
		}
		o.MaxParallel = n
		o.HasParallel = true
	}

	if v, ok := os.LookupEnv("SIMULATOR_DURATION"); ok {
		d, err := ParseSimDuration(v)
		if err != nil {
			return nil, newConfigError("SIMULATOR_DURATION", err)
		}
		o.Duration = &d
		o.Unbounded = false
	}

	if v, ok := os.LookupEnv("SIMULATOR_EPOCH_OFFSET"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, newConfigError("SIMULATOR_EPOCH_OFFSET", err)
		}
		o.EpochOffsetMs = &n
	}

	if v, ok := os.LookupEnv("SIMULATOR_STEP_MULTIPLIER"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, newConfigError("SIMULATOR_STEP_MULTIPLIER", err)
		}
		if n == 0 {
			n = 1
		}
		o.StepMultiplier = &n
	}

	if v, ok := os.LookupEnv("SIMULATOR_BANKER_COUNT"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, newConfigError("SIMULATOR_BANKER_COUNT", err)
		}
		o.BankerCount = &n
	}

	if _, ok := os.LookupEnv("NO_TUI"); ok {
		o.NoTUI = true
	}

	o.LogSpec = os.Getenv("RUST_LOG")

	return o, nil
}

// ParseSimDuration accepts a bare integer (milliseconds) or an integer
// with a ns/µs/ms/s suffix, per spec §6.1.
func ParseSimDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	for _, suffix := range []string{"ns", "µs", "us", "ms", "s"} {
		if strings.HasSuffix(s, suffix) {
			n, err := strconv.ParseInt(strings.TrimSuffix(s, suffix), 10, 64)
			if err != nil {
				return 0, err
			}
			switch suffix {
			case "ns":
				return time.Duration(n), nil
			case "µs", "us":
				return time.Duration(n) * time.Microsecond, nil
			case "ms":
				return time.Duration(n) * time.Millisecond, nil
			case "s":
				return time.Duration(n) * time.Second, nil
			}
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(n) * time.Millisecond, nil
}
