package ledger_repo

import (
	"strings"
	"testing"
	"time"

	"stocktally/internal/domain/registers/ledger"
)

func TestMovementConditions_ToSql(t *testing.T) {
	repo := NewLedgerRepo(nil)

	mType := ledger.TypeCount
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	filter := ledger.MovementFilter{
		Type:     &mType,
		FromDate: &from,
		ToDate:   &to,
		Search:   "martillo",
		Page:     2,
		PageSize: 50,
	}

	q := repo.movementJoinQuery()
	for _, c := range repo.movementConditions(7, filter) {
		q = q.Where(c)
	}
	q = q.OrderBy("m.created_at DESC").Limit(50).Offset(50)

	sql, args, err := q.ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	for _, fragment := range []string{
		"m.branch_id = $",
		"m.movement_type = $",
		"m.created_at >= $",
		"m.created_at < $",
		"ILIKE",
		"ORDER BY m.created_at DESC",
		"LIMIT 50 OFFSET 50",
	} {
		if !strings.Contains(sql, fragment) {
			t.Errorf("SQL missing %q:\n%s", fragment, sql)
		}
	}

	// branch + type + from + to + five ILIKE patterns
	if len(args) != 9 {
		t.Errorf("expected 9 args, got %d: %v", len(args), args)
	}
	if args[0] != int64(7) {
		t.Errorf("first arg must be branch id, got %v", args[0])
	}
}

func TestMovementConditions_EmptyFilter(t *testing.T) {
	repo := NewLedgerRepo(nil)

	conds := repo.movementConditions(3, ledger.MovementFilter{})
	if len(conds) != 1 {
		t.Fatalf("empty filter must only scope by branch, got %d conditions", len(conds))
	}
}
