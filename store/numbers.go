package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewNumber builds a business document number such as CMD-20250310-1A2B3C4D.
func NewNumber(prefix string, t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return prefix + "-" + t.Format("20060102") + "-" + suffix
}
