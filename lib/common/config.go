package common

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/jetpack/lib/buffer"
	"github.com/ValentinKolb/jetpack/lib/pool"
	"github.com/ValentinKolb/jetpack/lib/registry"
	"strings"
)

// --------------------------------------------------------------------------
// Serializer configuration struct
// --------------------------------------------------------------------------

// Config holds the tuning parameters of a serializer instance
type Config struct {
	// ChunkSize is the size of every buffer region in bytes
	ChunkSize int
	// SlotCount is the number of pre-warmed writers
	SlotCount int
	// TableSize is the number of registry slots
	TableSize int
	// TrackSizes enables the per-type size histograms
	TrackSizes bool

	// Logging configuration
	LogLevel string
}

// DefaultConfig returns the configuration used by serializer.Default
func DefaultConfig() Config {
	return Config{
		ChunkSize:  buffer.DefaultChunkSize,
		SlotCount:  pool.DefaultSlots(),
		TableSize:  registry.DefaultTableSize,
		TrackSizes: false,
		LogLevel:   "info",
	}
}

// Validate checks all parameters and returns the first problem found
func (c *Config) Validate() error {
	if c.ChunkSize < buffer.MinChunkSize {
		return fmt.Errorf("chunk size must be at least %d bytes, got %d", buffer.MinChunkSize, c.ChunkSize)
	}
	if c.SlotCount < 0 {
		return fmt.Errorf("slot count must not be negative, got %d", c.SlotCount)
	}
	if c.TableSize < 1 {
		return errors.New("table size must be positive")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Buffers")
	addField("Chunk Size", fmt.Sprintf("%d bytes", c.ChunkSize))
	addField("Writer Slots", fmt.Sprintf("%d", c.SlotCount))

	addSection("Registry")
	addField("Table Size", fmt.Sprintf("%d", c.TableSize))

	addSection("Statistics")
	addField("Track Sizes", fmt.Sprintf("%t", c.TrackSizes))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
