package board

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"os"
	"time"

	"github.com/sarchlab/sysim/loader"
)

// Config holds the machine parameters that are not part of the memory map.
// It is serialized as JSON.
type Config struct {
	// Arch selects the core family: "arm" or "riscv".
	Arch string `json:"arch"`

	// HighVectors places the ARM exception vectors at 0xFFFF0000.
	HighVectors bool `json:"high_vectors"`

	// ResetPC is the RISC-V reset address used when no image supplies an
	// entry point.
	ResetPC uint64 `json:"reset_pc"`

	// ImageBase is where raw images are loaded.
	ImageBase uint64 `json:"image_base"`

	// HartID is the RISC-V mhartid of the core.
	HartID uint64 `json:"hart_id"`

	// MaxTicks stops the core after this many ticks. Zero runs until halted.
	MaxTicks uint64 `json:"max_ticks"`

	// QuantumMicros is the idle sleep of the core and the wake-up period of
	// device loops, in microseconds.
	QuantumMicros uint64 `json:"quantum_us"`

	// DeviceTicks is how far timers count per quantum.
	DeviceTicks uint64 `json:"device_ticks_per_quantum"`

	// TLBSets and TLBWays size the translation cache.
	TLBSets int `json:"tlb_sets"`
	TLBWays int `json:"tlb_ways"`

	// Trace logs every executed instruction.
	Trace bool `json:"trace"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Arch:          "arm",
		ResetPC:       0x80000000,
		ImageBase:     0x8000,
		QuantumMicros: 1000,
		DeviceTicks:   1000,
		TLBSets:       16,
		TLBWays:       4,
	}
}

// LoadConfig loads a configuration from a JSON file. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse board config: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize board config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write board config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if _, err := loader.ParseArch(c.Arch); err != nil {
		return fmt.Errorf("arch: %w", err)
	}
	if c.QuantumMicros == 0 {
		return fmt.Errorf("quantum_us must be > 0")
	}
	if c.DeviceTicks == 0 {
		return fmt.Errorf("device_ticks_per_quantum must be > 0")
	}
	if c.TLBSets <= 0 || bits.OnesCount(uint(c.TLBSets)) != 1 {
		return fmt.Errorf("tlb_sets must be a power of two")
	}
	if c.TLBWays <= 0 {
		return fmt.Errorf("tlb_ways must be > 0")
	}
	return nil
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Quantum returns QuantumMicros as a duration.
func (c *Config) Quantum() time.Duration {
	return time.Duration(c.QuantumMicros) * time.Microsecond
}
