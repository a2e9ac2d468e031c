package vault

import (
	"fmt"
	"time"
)

// Since renders a millisecond timestamp as a coarse relative age, like
// "5m ago" or "3d ago". Ages under a minute, zero timestamps, and
// timestamps in the future all render as "just now".
func Since(ts int64, now time.Time) string {
	if ts <= 0 {
		return "just now"
	}
	d := now.Sub(time.UnixMilli(ts))
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
