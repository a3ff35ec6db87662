package solana

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Hash is a 32-byte cluster hash (blockhash).
type Hash [32]byte

// ParseHash decodes a base58-encoded hash.
func ParseHash(s string) (Hash, error) {
	key, err := ParsePubkey(s)
	if err != nil {
		return Hash{}, err
	}
	return Hash(key), nil
}

func (h Hash) String() string {
	return Pubkey(h).String()
}

// LamportsPerSol is the number of lamports in one SOL.
const LamportsPerSol uint64 = 1_000_000_000

// SolToLamports converts a fractional SOL amount into lamports.
func SolToLamports(sol float64) uint64 {
	return uint64(math.Round(sol * float64(LamportsPerSol)))
}

// Encoder writes the little-endian fixed layouts used by on-chain programs.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns everything written so far.
func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) U8(v uint8)   { e.buf = append(e.buf, v) }
func (e *Encoder) U16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *Encoder) U32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *Encoder) U64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *Encoder) I64(v int64)  { e.U64(uint64(v)) }

// U128 writes a 16-byte little-endian value given as the low 16 bytes.
func (e *Encoder) U128(v [16]byte) { e.buf = append(e.buf, v[:]...) }

func (e *Encoder) Bool(v bool) {
	if v {
		e.U8(1)
	} else {
		e.U8(0)
	}
}

func (e *Encoder) Pubkey(key Pubkey) { e.buf = append(e.buf, key[:]...) }

func (e *Encoder) Raw(raw []byte) { e.buf = append(e.buf, raw...) }

// String writes a borsh string (u32 length prefix).
func (e *Encoder) String(s string) {
	e.U32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// OptionU64 writes a borsh Option<u64>.
func (e *Encoder) OptionU64(v *uint64) {
	if v == nil {
		e.U8(0)
		return
	}
	e.U8(1)
	e.U64(*v)
}

// Decoder reads the little-endian fixed layouts used by on-chain programs.
type Decoder struct {
	buf []byte
	pos int
	err error
}

// NewDecoder wraps a byte slice for reading.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Err returns the first error hit while reading.
func (d *Decoder) Err() error { return d.err }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.Remaining() < n {
		d.err = fmt.Errorf("unexpected end of data: want %d bytes, have %d", n, d.Remaining())
		return nil
	}
	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out
}

func (d *Decoder) U8() uint8 {
	raw := d.take(1)
	if raw == nil {
		return 0
	}
	return raw[0]
}

func (d *Decoder) U16() uint16 {
	raw := d.take(2)
	if raw == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(raw)
}

func (d *Decoder) U32() uint32 {
	raw := d.take(4)
	if raw == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(raw)
}

func (d *Decoder) U64() uint64 {
	raw := d.take(8)
	if raw == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(raw)
}

func (d *Decoder) I64() int64 { return int64(d.U64()) }

func (d *Decoder) F64() float64 {
	raw := d.take(8)
	if raw == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(raw))
}

func (d *Decoder) U128() [16]byte {
	var out [16]byte
	raw := d.take(16)
	if raw != nil {
		copy(out[:], raw)
	}
	return out
}

func (d *Decoder) Bool() bool {
	return d.U8() != 0
}

func (d *Decoder) Pubkey() Pubkey {
	var key Pubkey
	raw := d.take(PubkeyLength)
	if raw != nil {
		copy(key[:], raw)
	}
	return key
}

// OptionU64 reads a borsh Option<u64>.
func (d *Decoder) OptionU64() *uint64 {
	if !d.Bool() {
		return nil
	}
	v := d.U64()
	return &v
}

// AppendShortvec writes the compact-u16 length prefix used in legacy
// transaction wire format.
func AppendShortvec(buf []byte, value int) []byte {
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}
