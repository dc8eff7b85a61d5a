package sqlite

import "database/sql"

// sizeToNull stores non-positive sizes as NULL
func sizeToNull(v float64) sql.NullFloat64 {
	if v <= 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// nullToSize converts a nullable size column, NULL reads as zero
func nullToSize(n sql.NullFloat64) float64 {
	if n.Valid {
		return n.Float64
	}
	return 0
}
