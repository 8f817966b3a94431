package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// PaginationComponents returns previous/next buttons whose custom ids are
// "<prefix>:<page>". Nothing is returned for a single page.
func PaginationComponents(currentPage, totalPages int, prefix string) []discordgo.MessageComponent {
	if totalPages <= 1 {
		return nil
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "◀ Previous",
					Style:    discordgo.SecondaryButton,
					Disabled: currentPage <= 1,
					CustomID: fmt.Sprintf("%s:%d", prefix, currentPage-1),
				},
				discordgo.Button{
					Label:    fmt.Sprintf("%d/%d", currentPage, totalPages),
					Style:    discordgo.SecondaryButton,
					Disabled: true,
					CustomID: prefix + ":current",
				},
				discordgo.Button{
					Label:    "Next ▶",
					Style:    discordgo.SecondaryButton,
					Disabled: currentPage >= totalPages,
					CustomID: fmt.Sprintf("%s:%d", prefix, currentPage+1),
				},
			},
		},
	}
}

// ParsePage extracts the page from a custom id built by PaginationComponents.
func ParsePage(customID, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(customID, prefix+":")
	if !ok {
		return 0, false
	}
	page, err := strconv.Atoi(rest)
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

// PageCount returns how many pages of size perPage hold n items, at least one.
func PageCount(n, perPage int) int {
	if n <= 0 || perPage <= 0 {
		return 1
	}
	return (n + perPage - 1) / perPage
}
