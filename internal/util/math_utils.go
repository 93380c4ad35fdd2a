package util

// CeilDiv returns ceil(n / d) for non-negative n and positive d.
func CeilDiv(n, d int) int {
	if d <= 0 || n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
