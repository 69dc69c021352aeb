package payment

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewReference builds a ledger reference like TXN20240501120000A1B2C3D4.
// The UTC timestamp prefix keeps references roughly ordered for audits; the
// uuid suffix keeps them unique under concurrent settlement, where a bare
// timestamp would collide.
func NewReference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "TXN" + now.UTC().Format("20060102150405") + suffix
}
