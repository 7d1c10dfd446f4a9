package at

import (
	"strconv"
	"strings"
)

// NotificationType identifies the nature of an asynchronous line received
// while the module reboots and applies a staged firmware image.
type NotificationType int

const (
	// NotifyNone marks a line that is not an update notification.
	NotifyNone NotificationType = iota
	// NotifyProgress carries a flash progress percentage.
	NotifyProgress
	// NotifySuccess reports that the firmware image was applied.
	NotifySuccess
	// NotifyReady reports that the module finished rebooting.
	NotifyReady
)

// ClassifyNotification identifies the update notification carried by line.
// For NotifyProgress the returned value is the reported percentage; it is
// zero for every other type. A progress marker with no trailing digits is
// classified NotifyNone, matching the silent-retry contract of the monitor.
func ClassifyNotification(line string) (NotificationType, int) {
	if strings.Contains(line, MarkUpdateSuccess) {
		return NotifySuccess, 0
	}
	if v, ok := NumberAfter(line, MarkUpdateProgress); ok {
		return NotifyProgress, v
	}
	if strings.Contains(line, MarkDeviceReady) {
		return NotifyReady, 0
	}
	return NotifyNone, 0
}

// NumberAfter locates prefix in line, skips any non-digit characters that
// immediately follow it, and parses the subsequent run of ASCII digits as a
// decimal value. It reports false when the prefix is absent or no digits
// follow it; callers treat that as "no match", never as an error.
func NumberAfter(line, prefix string) (int, bool) {
	i := strings.Index(line, prefix)
	if i < 0 {
		return 0, false
	}
	rest := line[i+len(prefix):]

	start := 0
	for start < len(rest) && !isDigit(rest[start]) {
		start++
	}
	end := start
	for end < len(rest) && isDigit(rest[end]) {
		end++
	}
	if start == end {
		return 0, false
	}

	v, err := strconv.Atoi(rest[start:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
