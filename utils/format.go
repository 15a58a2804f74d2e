package utils

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Coins renders an amount with thousands separators, e.g. 250,000.
func Coins(n int64) string {
	return printer.Sprintf("%d", n)
}

// Wait renders a remaining cooldown in the two largest useful units:
// "2d 3h", "5h 12m" or "4m 58s".
func Wait(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d >= 24*time.Hour:
		days := d / (24 * time.Hour)
		hours := (d % (24 * time.Hour)) / time.Hour
		return fmt.Sprintf("%dd %dh", days, hours)
	case d >= time.Hour:
		hours := d / time.Hour
		mins := (d % time.Hour) / time.Minute
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		mins := d / time.Minute
		secs := (d % time.Minute) / time.Second
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
}
