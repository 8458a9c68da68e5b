package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const numberPrefix = "INV-"

// NumberPrefix is the per-month prefix of invoice numbers, e.g. "INV-202403-"
func NumberPrefix(now time.Time) string {
	return numberPrefix + now.Format("200601") + "-"
}

// NextNumber returns the number following latest within prefix. An empty
// latest starts the sequence at 1.
func NextNumber(prefix, latest string) (string, error) {
	seq := 0
	if latest != "" {
		if !strings.HasPrefix(latest, prefix) {
			return "", fmt.Errorf("invoice number %q does not have prefix %q", latest, prefix)
		}
		n, err := strconv.Atoi(strings.TrimPrefix(latest, prefix))
		if err != nil {
			return "", fmt.Errorf("malformed invoice number %q: %w", latest, err)
		}
		seq = n
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}
