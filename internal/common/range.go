package common

type number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// IsInRange checks if a value is within the specified range, both inclusive.
func IsInRange[T number](lo T, value T, hi T) bool {
	return lo <= value && value <= hi
}

// UnknownStr is the String() fallback for out-of-range enum values.
const UnknownStr = "unknown"
