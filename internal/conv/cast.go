package conv

import (
	"fmt"
	"math"
)

// IntToInt32 converts int to int32 safely.
func IntToInt32(v int) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to int32", v)
	}
	return int32(v), nil
}

// IntToInt64Bytes returns n*size as an int64 byte count, failing on overflow.
func IntToInt64Bytes(n, size int) (int64, error) {
	if n < 0 || size < 0 {
		return 0, fmt.Errorf("integer overflow: negative byte count %d*%d", n, size)
	}
	if size != 0 && int64(n) > math.MaxInt64/int64(size) {
		return 0, fmt.Errorf("integer overflow: %d*%d bytes exceeds int64", n, size)
	}
	return int64(n) * int64(size), nil
}
