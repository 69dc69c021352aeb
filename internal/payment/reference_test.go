package payment

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReference_Format(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)

	ref := NewReference(now)
	require.Len(t, ref, 3+14+8)
	assert.True(t, strings.HasPrefix(ref, "TXN20240501123045"))
	assert.Regexp(t, `^TXN\d{14}[0-9A-F]{8}$`, ref)
}

func TestNewReference_UniqueWithinSameInstant(t *testing.T) {
	now := time.Now()

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		ref := NewReference(now)
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate reference %s after %d generations", ref, i)
		}
		seen[ref] = struct{}{}
	}
}
