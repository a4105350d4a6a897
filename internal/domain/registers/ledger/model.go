// Package ledger provides the per-branch inventory accumulation register:
// current quantities plus the append-only movement audit log.
package ledger

import (
	"time"

	"stocktally/internal/core/id"
)

// MovementType classifies a quantity change.
type MovementType string

const (
	// TypeCount is an additive blind count: the scanned amount is added to
	// the running total, never overwriting it.
	TypeCount        MovementType = "count"
	TypeInitialCount MovementType = "initial-count"
	TypeEntry        MovementType = "entry"
	TypeExit         MovementType = "exit"
	TypeAdjustment   MovementType = "adjustment"
	TypeShrinkage    MovementType = "shrinkage"
	TypeReturn       MovementType = "return"
)

// IsValidMovementType reports whether t is a known movement type.
func IsValidMovementType(t MovementType) bool {
	switch t {
	case TypeCount, TypeInitialCount, TypeEntry, TypeExit,
		TypeAdjustment, TypeShrinkage, TypeReturn:
		return true
	}
	return false
}

// InventoryRecord is the current-quantity row for one (product, branch) pair.
// At most one record exists per pair; absence of a record means quantity 0.
// Records are created on first movement and never deleted; a reset sets
// quantity to 0, it does not remove the row.
type InventoryRecord struct {
	ProductID     int64     `db:"product_id" json:"productId"`
	BranchID      int64     `db:"branch_id" json:"branchId"`
	Quantity      int64     `db:"quantity" json:"quantity"`
	LastCountedAt time.Time `db:"last_counted_at" json:"lastCountedAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// Movement is an immutable, append-only audit record. Movements are never
// updated or deleted; they are the sole source of historical truth.
type Movement struct {
	LineID           id.ID        `db:"line_id" json:"lineId"`
	BranchID         int64        `db:"branch_id" json:"branchId"`
	ProductID        int64        `db:"product_id" json:"productId"`
	PreviousQuantity int64        `db:"previous_quantity" json:"previousQuantity"`
	NewQuantity      int64        `db:"new_quantity" json:"newQuantity"`
	Type             MovementType `db:"movement_type" json:"type"`
	ActingUser       string       `db:"acting_user" json:"actingUser"`
	Notes            string       `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"createdAt"`
}

// NewMovement creates a movement with a generated time-ordered line id.
func NewMovement(branchID, productID, previous, newQty int64, mType MovementType, actingUser, notes string) Movement {
	return Movement{
		LineID:           id.New(),
		BranchID:         branchID,
		ProductID:        productID,
		PreviousQuantity: previous,
		NewQuantity:      newQty,
		Type:             mType,
		ActingUser:       actingUser,
		Notes:            notes,
		CreatedAt:        time.Now().UTC(),
	}
}

// Delta returns the signed quantity change this movement recorded.
func (m *Movement) Delta() int64 {
	return m.NewQuantity - m.PreviousQuantity
}

// MovementWithProduct joins a movement with its product's catalog fields for
// the read side.
type MovementWithProduct struct {
	Movement

	MRPCode     *string `db:"mrp_code" json:"mrpCode,omitempty"`
	TruperCode  *string `db:"truper_code" json:"truperCode,omitempty"`
	Brand       string  `db:"brand" json:"brand"`
	Description string  `db:"description" json:"description"`
}

// CodedQuantity is the bulk-read shape the reconciliation engine consumes:
// one branch-scoped current quantity with every code the product is
// registered under.
type CodedQuantity struct {
	ProductID  int64   `db:"product_id"`
	MRPCode    *string `db:"mrp_code"`
	TruperCode *string `db:"truper_code"`
	Quantity   int64   `db:"quantity"`
}
