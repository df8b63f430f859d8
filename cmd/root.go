package cmd

import (
	"fmt"
	"github.com/ValentinKolb/jetpack/cmd/bench"
	"github.com/ValentinKolb/jetpack/cmd/layout"
	"github.com/ValentinKolb/jetpack/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "jetpack",
		Short: "tag-framed binary object serializer",
		Long: fmt.Sprintf(`jetpack (v%s)

A binary object serializer for Go. Types are compiled once into flat
encoding routines and values are streamed through fixed size buffer
regions that are flushed and reused as they fill up.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of jetpack",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jetpack v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(layout.LayoutCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupSerializerFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
