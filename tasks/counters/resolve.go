package counters

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Stabilize applies the last-known-good rule: a failed fetch keeps the cached
// value, a successful one replaces it whether it went up or down.
func Stabilize(fetched, cached *int64) *int64 {
	if fetched != nil {
		return fetched
	}
	return cached
}

// Resolve applies a manual override on top of the stable value. The override
// wins unless the real value has grown past it.
func Resolve(stable, override *int64) *int64 {
	if override == nil {
		return stable
	}
	if stable == nil || *override >= *stable {
		return override
	}
	return stable
}

// FormatCount renders n with dots as thousands separators, "—" for no value.
func FormatCount(n *int64) string {
	if n == nil {
		return "—"
	}
	v := *n
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return sign + b.String()
}

const maxChannelName = 100

// ChannelName fills a template's {count} placeholder and clamps the result to
// the Discord channel name limit.
func ChannelName(template string, n *int64) string {
	name := strings.TrimSpace(strings.ReplaceAll(template, "{count}", FormatCount(n)))
	if utf8.RuneCountInString(name) <= maxChannelName {
		return name
	}
	return string([]rune(name)[:maxChannelName])
}
