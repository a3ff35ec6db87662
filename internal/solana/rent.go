package solana

import "fmt"

// Rent mirrors the cluster rent sysvar.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
	BurnPercent         uint8
}

// Accounts carry this much metadata on top of their data length.
const accountStorageOverhead = 128

// ParseRent decodes the rent sysvar account data.
func ParseRent(raw []byte) (Rent, error) {
	dec := NewDecoder(raw)
	rent := Rent{
		LamportsPerByteYear: dec.U64(),
		ExemptionThreshold:  dec.F64(),
		BurnPercent:         dec.U8(),
	}
	if err := dec.Err(); err != nil {
		return Rent{}, fmt.Errorf("decode rent sysvar: %w", err)
	}
	return rent, nil
}

// MinimumBalance returns the rent-exempt minimum for an account of the given
// data length.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	bytes := uint64(accountStorageOverhead + dataLen)
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}
