package types

import (
	"golang.org/x/exp/constraints"
)

// DocumentCount represents a count of BSON/MongoDB documents.
type DocumentCount int64

// ByteCount represents a count of bytes.
type ByteCount int64

// RealNumber represents any real (i.e., non-complex) number type.
type RealNumber interface {
	constraints.Integer | constraints.Float
}
