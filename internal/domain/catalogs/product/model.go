// Package product provides the product catalog. Products are looked up, not
// created, by the counting core: the catalog is maintained upstream.
package product

import (
	"context"
	"strings"
	"time"

	"stocktally/internal/core/apperror"
)

// Product represents a catalog item. A product carries up to two independent
// vendor code identities: the MRP code and the Truper code. External ERP
// exports may key the same product by either one.
type Product struct {
	ID          int64   `db:"id" json:"id"`
	MRPCode     *string `db:"mrp_code" json:"mrpCode,omitempty"`
	TruperCode  *string `db:"truper_code" json:"truperCode,omitempty"`
	Brand       string  `db:"brand" json:"brand"`
	Description string  `db:"description" json:"description"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Codes returns the non-blank vendor codes this product is registered under.
func (p *Product) Codes() []string {
	codes := make([]string, 0, 2)
	if p.MRPCode != nil {
		if c := strings.TrimSpace(*p.MRPCode); c != "" {
			codes = append(codes, c)
		}
	}
	if p.TruperCode != nil {
		if c := strings.TrimSpace(*p.TruperCode); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

// Validate checks catalog invariants.
func (p *Product) Validate(ctx context.Context) error {
	if p.ID <= 0 {
		return apperror.NewValidation("product id is required").
			WithDetail("field", "id")
	}
	if len(p.Codes()) == 0 {
		return apperror.NewValidation("product needs at least one vendor code").
			WithDetail("field", "mrpCode")
	}
	return nil
}
