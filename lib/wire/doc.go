// Package wire defines the on-wire vocabulary of the jetpack codec.
//
// Every value on the wire is framed by a one byte Tag that identifies how the
// bytes following it must be decoded. Fixed width payloads are little-endian.
//
// Key Components:
//
//   - Tag: the closed enumeration of wire shapes, with stable ordinals.
//
//   - Manifest / TagOf: the static mapping from Go types to the primitive tag
//     used to encode them. Exact types (time.Time, uuid.UUID, decimal.Decimal,
//     Char) are matched before kinds, so named types over basic kinds encode
//     like their underlying kind.
//
//   - Ticks / TimeFromTicks: conversion between time.Time and 100ns ticks since
//     0001-01-01T00:00:00Z (the DateTime payload).
//
//   - PutDecimal / Decimal: conversion between decimal.Decimal and the 16 byte
//     decimal payload (flags, hi, lo, mid).
//
// Wire Layout:
//
//	Bool, Byte, SByte                   tag + 1 byte
//	Char, Short, UShort                 tag + 2 bytes
//	Int, UInt, Float                    tag + 4 bytes
//	Long, ULong, Double, DateTime       tag + 8 bytes
//	Decimal, Guid                       tag + 16 bytes
//	String                              tag + UTF-8 bytes (not length prefixed)
//	CollectionStart                     tag + 4 byte element count
//	Object, CollectionEnd               tag only
//
// Nested objects are written as Object, the nested fields, CollectionEnd.
package wire
