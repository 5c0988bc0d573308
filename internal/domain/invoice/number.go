package invoice

import "fmt"

// FormatNumber renders the tenant scoped invoice number INV-<year>-<seq>.
// The sequence is zero padded to four digits and grows past 9999.
func FormatNumber(year int, seq int64) string {
	return fmt.Sprintf("INV-%d-%04d", year, seq)
}
