// Package timex holds time helpers shared by the firmware services.
package timex

import "time"

// NowMs returns Unix milliseconds; reading timestamps use it.
func NowMs() int64 { return time.Now().UnixMilli() }
