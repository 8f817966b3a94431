package utils

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginationComponents(t *testing.T) {
	assert.Nil(t, PaginationComponents(1, 1, "modstats"))

	comps := PaginationComponents(1, 3, "modstats")
	require.Len(t, comps, 1)
	row := comps[0].(discordgo.ActionsRow)
	require.Len(t, row.Components, 3)
	prev := row.Components[0].(discordgo.Button)
	next := row.Components[2].(discordgo.Button)
	assert.True(t, prev.Disabled)
	assert.False(t, next.Disabled)
	assert.Equal(t, "modstats:2", next.CustomID)
	assert.Equal(t, "1/3", row.Components[1].(discordgo.Button).Label)
}

func TestParsePage(t *testing.T) {
	page, ok := ParsePage("modstats:2", "modstats")
	assert.True(t, ok)
	assert.Equal(t, 2, page)

	for _, id := range []string{"modstats:0", "modstats:current", "giveaway:join:1", "modstats"} {
		_, ok := ParsePage(id, "modstats")
		assert.False(t, ok, id)
	}
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 1, PageCount(0, 15))
	assert.Equal(t, 1, PageCount(15, 15))
	assert.Equal(t, 2, PageCount(16, 15))
}
