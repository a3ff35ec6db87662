// Package storage holds the persisted domain model and its queries.
package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// Stage is the stored project lifecycle stage. Ordering is meaningful:
// stages only ever advance.
type Stage string

const (
	StageCreated          Stage = "created"
	StageConfirmed        Stage = "confirmed"
	StageOnStaticPool     Stage = "on_static_pool"
	StageStaticPoolClosed Stage = "static_pool_closed"
	StageOnCurvePool      Stage = "on_curve_pool"
	StageCurvePoolClosed  Stage = "curve_pool_closed"
	StageGraduated        Stage = "graduated"
)

var stageOrder = map[Stage]int{
	StageCreated:          0,
	StageConfirmed:        1,
	StageOnStaticPool:     2,
	StageStaticPoolClosed: 3,
	StageOnCurvePool:      4,
	StageCurvePoolClosed:  5,
	StageGraduated:        6,
}

// Order returns the stage's position in the lifecycle.
func (s Stage) Order() (int, error) {
	order, ok := stageOrder[s]
	if !ok {
		return 0, fmt.Errorf("unknown stage %q", s)
	}
	return order, nil
}

// Before reports whether s precedes other in the lifecycle.
func (s Stage) Before(other Stage) bool {
	a, errA := s.Order()
	b, errB := other.Order()
	if errA != nil || errB != nil {
		return false
	}
	return a < b
}

// Value implements driver.Valuer.
func (s Stage) Value() (driver.Value, error) {
	if _, err := s.Order(); err != nil {
		return nil, err
	}
	return string(s), nil
}

// Scan implements sql.Scanner.
func (s *Stage) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*s = Stage(v)
	case []byte:
		*s = Stage(v)
	default:
		return fmt.Errorf("cannot scan %T into Stage", src)
	}
	_, err := s.Order()
	return err
}

// StoredPubkey is a public key persisted as raw bytes.
type StoredPubkey []byte

// StoredPubkeyOf converts a key into its stored form.
func StoredPubkeyOf(key solana.Pubkey) StoredPubkey {
	return StoredPubkey(key[:])
}

// Pubkey converts back into the typed key.
func (p StoredPubkey) Pubkey() (solana.Pubkey, error) {
	return solana.PubkeyFromBytes(p)
}

// StoredKeypair is a secret keypair persisted as raw bytes.
type StoredKeypair []byte

// StoredKeypairOf converts a keypair into its stored form.
func StoredKeypairOf(keypair solana.Keypair) StoredKeypair {
	return StoredKeypair(keypair.Bytes())
}

// Keypair converts back into the typed keypair.
func (k StoredKeypair) Keypair() (solana.Keypair, error) {
	return solana.KeypairFromBytes(k)
}

// Scan implements sql.Scanner; NULL scans as an empty key.
func (p *StoredPubkey) Scan(src any) error { return scanStoredBytes((*[]byte)(p), src) }

// Scan implements sql.Scanner; NULL scans as an empty keypair.
func (k *StoredKeypair) Scan(src any) error { return scanStoredBytes((*[]byte)(k), src) }

func scanStoredBytes(dst *[]byte, src any) error {
	raw, ok := src.([]byte)
	if src != nil && !ok {
		return fmt.Errorf("cannot scan %T into key bytes", src)
	}
	*dst = append([]byte(nil), raw...)
	return nil
}

// Balance is a lamport amount stored in a NUMERIC column.
type Balance uint64

// Value implements driver.Valuer.
func (b Balance) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(b), 10), nil
}

// Scan implements sql.Scanner.
func (b *Balance) Scan(src any) error {
	var text string
	switch v := src.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("negative balance %d", v)
		}
		*b = Balance(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Balance", src)
	}
	// NUMERIC may carry a fractional suffix; balances never do.
	text = strings.TrimSuffix(text, ".0")
	parsed, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return fmt.Errorf("parse balance %q: %w", text, err)
	}
	*b = Balance(parsed)
	return nil
}

// CurveVariant selects the curve pool implementation.
type CurveVariant string

const (
	CurveVariantMzip    CurveVariant = "mzip"
	CurveVariantPumpfun CurveVariant = "pumpfun"
)

// StaticPoolConfig is the stored static pool deployment settings.
type StaticPoolConfig struct {
	LaunchTs int64 `json:"launchTs"`
}

// DevPurchase is the stored developer purchase settings.
type DevPurchase struct {
	Amount     uint64 `json:"amount"`
	LockPeriod int64  `json:"lockPeriod"` // seconds
}

// DeploySchema is the stored deployment shape of a project.
type DeploySchema struct {
	StaticPool  *StaticPoolConfig `json:"staticPool,omitempty"`
	CurvePool   CurveVariant      `json:"curvePool"`
	DevPurchase *DevPurchase      `json:"devPurchase,omitempty"`
}

// Value implements driver.Valuer (stored as JSONB).
func (d DeploySchema) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *DeploySchema) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("cannot scan %T into DeploySchema", src)
	}
}

// NeedsDevLock reports whether the dev purchase requires a vesting lock.
func (d DeploySchema) NeedsDevLock() bool {
	return d.DevPurchase != nil && d.DevPurchase.LockPeriod > 0
}
