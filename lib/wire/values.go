package wire

import (
	"encoding/binary"
	"errors"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrDecimalOverflow is returned when a decimal coefficient does not fit
	// into 96 bits after scaling.
	ErrDecimalOverflow = errors.New("wire: decimal coefficient exceeds 96 bits")
	// ErrInvalidDecimal is returned when a decimal payload carries a scale
	// outside 0..28.
	ErrInvalidDecimal = errors.New("wire: invalid decimal payload")
)

// --------------------------------------------------------------------------
// DateTime
// --------------------------------------------------------------------------

const (
	// unixEpochSeconds is the number of seconds between 0001-01-01 and 1970-01-01
	unixEpochSeconds = 62135596800
	ticksPerSecond   = 10_000_000
	nanosPerTick     = 100
)

// Ticks converts t to the number of 100ns intervals since 0001-01-01T00:00:00Z.
// Sub-tick precision is truncated.
func Ticks(t time.Time) int64 {
	return (t.Unix()+unixEpochSeconds)*ticksPerSecond + int64(t.Nanosecond()/nanosPerTick)
}

// TimeFromTicks is the inverse of Ticks. The result is in UTC.
func TimeFromTicks(ticks int64) time.Time {
	sec := ticks/ticksPerSecond - unixEpochSeconds
	nsec := (ticks % ticksPerSecond) * nanosPerTick
	return time.Unix(sec, nsec).UTC()
}

// --------------------------------------------------------------------------
// Decimal
// --------------------------------------------------------------------------

const (
	// DecimalSize is the payload size of a decimal
	DecimalSize = 16
	// MaxDecimalScale is the largest number of fractional digits a decimal keeps
	MaxDecimalScale = 28

	decimalSignBit    = 1 << 31
	decimalScaleShift = 16
)

var ten = big.NewInt(10)

// PutDecimal writes d into dst[:16] as flags, hi, lo, mid (32 bit each).
// Values with more than 28 fractional digits are rounded to 28.
func PutDecimal(dst []byte, d decimal.Decimal) error {
	_ = dst[DecimalSize-1]

	if -d.Exponent() > MaxDecimalScale {
		d = d.Round(MaxDecimalScale)
	}

	coeff := d.Coefficient()
	exp := d.Exponent()
	if exp > 0 {
		coeff.Mul(coeff, new(big.Int).Exp(ten, big.NewInt(int64(exp)), nil))
		exp = 0
	}

	var flags uint32
	if coeff.Sign() < 0 {
		flags = decimalSignBit
		coeff.Neg(coeff)
	}
	if coeff.BitLen() > 96 {
		return ErrDecimalOverflow
	}
	flags |= uint32(-exp) << decimalScaleShift

	var mag [12]byte
	coeff.FillBytes(mag[:])

	binary.LittleEndian.PutUint32(dst[0:4], flags)
	binary.LittleEndian.PutUint32(dst[4:8], binary.BigEndian.Uint32(mag[0:4]))   // hi
	binary.LittleEndian.PutUint32(dst[8:12], binary.BigEndian.Uint32(mag[8:12])) // lo
	binary.LittleEndian.PutUint32(dst[12:16], binary.BigEndian.Uint32(mag[4:8])) // mid
	return nil
}

// Decimal decodes a 16 byte decimal payload written by PutDecimal.
func Decimal(src []byte) (decimal.Decimal, error) {
	_ = src[DecimalSize-1]

	flags := binary.LittleEndian.Uint32(src[0:4])
	hi := binary.LittleEndian.Uint32(src[4:8])
	lo := binary.LittleEndian.Uint32(src[8:12])
	mid := binary.LittleEndian.Uint32(src[12:16])

	scale := (flags >> decimalScaleShift) & 0xFF
	if scale > MaxDecimalScale {
		return decimal.Decimal{}, ErrInvalidDecimal
	}

	var coeff big.Int
	if hi == 0 {
		coeff.SetUint64(uint64(mid)<<32 | uint64(lo))
	} else {
		var mag [12]byte
		binary.BigEndian.PutUint32(mag[0:4], hi)
		binary.BigEndian.PutUint32(mag[4:8], mid)
		binary.BigEndian.PutUint32(mag[8:12], lo)
		coeff.SetBytes(mag[:])
	}
	if flags&decimalSignBit != 0 {
		coeff.Neg(&coeff)
	}
	return decimal.NewFromBigInt(&coeff, -int32(scale)), nil
}
