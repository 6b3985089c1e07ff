// Package utils provides shared utility functions.
package utils

import (
	"fmt"
)

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPrice formats a price with 4 decimal places.
func FormatPrice(value float64) string {
	return fmt.Sprintf("%.4f", value)
}

// FormatQuantity formats a position size with 6 decimal places, the
// granularity accepted by USD-M futures order endpoints.
func FormatQuantity(value float64) string {
	return fmt.Sprintf("%.6f", value)
}
