// Package bench compares the jetpack serializer with a hand written binary
// format, encoding/json and encoding/gob on a fixed set of fixtures.
//
// Key Components:
//
//   - Fixtures: named values covering flat objects (Poco), RPC style envelopes
//     (Message) and nested objects with collections and decimals (Order).
//
//   - Encoder: the common interface of all compared encoders. The binary
//     encoder is schema specific and only supports Poco and Message; it marks
//     the lower bound for size and time.
//
//   - Runner: runs testing.Benchmark for every fixture/encoder pair, records
//     encoded sizes and ns/op in go-metrics histograms and timers and
//     summarizes the throughput per encoder.
//
// The runner backs the `jetpack bench` command.
package bench
