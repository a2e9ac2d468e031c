package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSince(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	cases := []struct {
		name string
		ts   int64
		want string
	}{
		{"zero", 0, "just now"},
		{"future", now.Add(time.Minute).UnixMilli(), "just now"},
		{"seconds", now.Add(-30 * time.Second).UnixMilli(), "just now"},
		{"minutes", now.Add(-5 * time.Minute).UnixMilli(), "5m ago"},
		{"hours", now.Add(-2 * time.Hour).UnixMilli(), "2h ago"},
		{"days", now.Add(-72 * time.Hour).UnixMilli(), "3d ago"},
		{"rounds down", now.Add(-90 * time.Minute).UnixMilli(), "1h ago"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Since(tc.ts, now))
		})
	}
}
