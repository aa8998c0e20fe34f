package utils

const (
	// MINCOND bounds the reciprocal condition number accepted from a dense factorization.
	MINCOND = 1.e-14
)
