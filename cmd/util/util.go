package util

import (
	"github.com/ValentinKolb/jetpack/lib/buffer"
	"github.com/ValentinKolb/jetpack/lib/common"
	"github.com/ValentinKolb/jetpack/lib/pool"
	"github.com/ValentinKolb/jetpack/lib/registry"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupSerializerFlags adds the serializer tuning flags to a command
func SetupSerializerFlags(cmd *cobra.Command) {
	key := "chunk-size"
	cmd.PersistentFlags().Int(key, buffer.DefaultChunkSize, WrapString("Size of every buffer region in bytes (at least 17)"))

	key = "slots"
	cmd.PersistentFlags().Int(key, pool.DefaultSlots(), WrapString("Number of pre-warmed writers in the writer pool"))

	key = "table-size"
	cmd.PersistentFlags().Int(key, registry.DefaultTableSize, WrapString("Number of slots in the type registry (rounded up to a power of two)"))

	key = "track-sizes"
	cmd.PersistentFlags().Bool(key, false, WrapString("Whether to record a histogram of encoded sizes per type"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("jetpack")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetConfig reads the serializer configuration from viper
func GetConfig() common.Config {
	return common.Config{
		ChunkSize:  viper.GetInt("chunk-size"),
		SlotCount:  viper.GetInt("slots"),
		TableSize:  viper.GetInt("table-size"),
		TrackSizes: viper.GetBool("track-sizes"),
		LogLevel:   viper.GetString("log-level"),
	}
}

// BindCommandFlags binds a command's flags (including inherited ones) to viper
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.InheritedFlags()); err != nil {
		return err
	}
	return viper.BindPFlags(cmd.Flags())
}
