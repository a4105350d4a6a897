package dto

// RegisterCountRequest submits one blind count.
type RegisterCountRequest struct {
	ProductID     int64  `json:"productId" binding:"required"`
	BranchID      *int64 `json:"branchId"`
	AddedQuantity int64  `json:"addedQuantity"`
	Type          string `json:"type"`
	Notes         string `json:"notes"`
}

// ResetQuantityRequest zeroes one (product, branch) pair.
type ResetQuantityRequest struct {
	ProductID int64  `json:"productId" binding:"required"`
	BranchID  *int64 `json:"branchId"`
	Notes     string `json:"notes"`
}

// QuantityResponse reports the current quantity of a pair.
type QuantityResponse struct {
	ProductID     int64  `json:"productId"`
	BranchID      int64  `json:"branchId"`
	Quantity      int64  `json:"quantity"`
	LastCountedAt string `json:"lastCountedAt,omitempty"`
}
