package cli

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// formatVND renders an amount in dong with dot thousand separators,
// e.g. 6.800.000 ₫.
func formatVND(amount float64) string {
	return strings.ReplaceAll(humanize.Comma(int64(math.Round(amount))), ",", ".") + " ₫"
}
