package utils

import (
	"strconv"
	"strings"
)

// ParseHexColor parses a hex color string (like "#2ECC71") into an integer for Discord embeds.
// Returns fallback if parsing fails.
func ParseHexColor(hexColor string, fallback int) int {
	hexColor = strings.TrimPrefix(strings.TrimSpace(hexColor), "#")
	if hexColor == "" {
		return fallback
	}
	colorInt, err := strconv.ParseInt(hexColor, 16, 64)
	if err != nil || colorInt < 0 || colorInt > 0xFFFFFF {
		return fallback
	}
	return int(colorInt)
}
