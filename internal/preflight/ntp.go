package preflight

import (
	"time"

	"github.com/beevik/ntp"
)

const (
	// NTPPool is the public pool queried by the clock-skew check.
	NTPPool = "pool.ntp.org"

	// NTPThreshold is the offset above which the local clock is flagged.
	// TLS and token-expiry problems start well past this.
	NTPThreshold = 500 * time.Millisecond
)

// NTPQueryFunc returns the local clock's offset from an NTP pool.
type NTPQueryFunc func(pool string) (time.Duration, error)

// QueryPool is the production NTPQueryFunc.
func QueryPool(pool string) (time.Duration, error) {
	resp, err := ntp.Query(pool)
	if err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}
