package repository

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// queryable is satisfied by both the connection pool and a transaction
type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// toNumeric encodes a wei amount for a NUMERIC(78,0) column; nil becomes NULL
func toNumeric(v *big.Int) pgtype.Numeric {
	if v == nil {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{Int: new(big.Int).Set(v), Exp: 0, Valid: true}
}

// fromNumeric decodes an integral NUMERIC; NULL becomes nil
func fromNumeric(n pgtype.Numeric) (*big.Int, error) {
	if !n.Valid {
		return nil, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return nil, fmt.Errorf("numeric value is not finite")
	}

	v := new(big.Int).Set(n.Int)
	switch {
	case n.Exp > 0:
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
	case n.Exp < 0:
		divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n.Exp)), nil)
		q, r := new(big.Int).QuoRem(v, divisor, new(big.Int))
		if r.Sign() != 0 {
			return nil, fmt.Errorf("numeric value %s is not an integer", n.Int.String())
		}
		v = q
	}
	return v, nil
}

// mustFromNumeric is fromNumeric for NOT NULL columns
func mustFromNumeric(n pgtype.Numeric, column string) (*big.Int, error) {
	v, err := fromNumeric(n)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", column, err)
	}
	if v == nil {
		return nil, fmt.Errorf("unexpected NULL in %s", column)
	}
	return v, nil
}

func addressPtr(s *string) *common.Address {
	if s == nil {
		return nil
	}
	a := common.HexToAddress(*s)
	return &a
}

func hashPtr(s *string) *common.Hash {
	if s == nil {
		return nil
	}
	h := common.HexToHash(*s)
	return &h
}

func addressString(a *common.Address) *string {
	if a == nil {
		return nil
	}
	s := a.Hex()
	return &s
}

func hashString(h *common.Hash) *string {
	if h == nil {
		return nil
	}
	s := h.Hex()
	return &s
}

// nullableTime maps the zero time to NULL so the column default applies
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
