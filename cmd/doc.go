// Package cmd implements the command-line interface of jetpack.
//
// The package is organized into several subpackages:
//
//   - bench: Benchmarks jetpack against a hand written binary format, json and gob
//   - layout: Prints the compiled field layout of the benchmark fixtures
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All serializer settings are available as flags and as environment variables
// with the JETPACK_ prefix (e.g. JETPACK_CHUNK_SIZE=1024). A .env or .env.local
// file in the working directory is loaded as well.
//
// See jetpack -help for a list of all commands.
package cmd
