package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimaryFilter_Matches(t *testing.T) {
	plain := &SavedItem{}
	fav := &SavedItem{IsFavorite: true}
	archived := &SavedItem{IsArchived: true}
	favArchived := &SavedItem{IsFavorite: true, IsArchived: true}

	tests := []struct {
		filter PrimaryFilter
		item   *SavedItem
		want   bool
	}{
		{FilterAll, plain, true},
		{FilterAll, fav, true},
		{FilterAll, archived, false},
		{FilterAll, favArchived, false},
		{FilterFavorites, plain, false},
		{FilterFavorites, fav, true},
		{FilterFavorites, favArchived, false},
		{FilterArchived, plain, false},
		{FilterArchived, archived, true},
		{FilterArchived, favArchived, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.filter.Matches(tt.item), "%s on %+v", tt.filter, tt.item)
	}
}

func TestParsePrimaryFilter(t *testing.T) {
	f, err := ParsePrimaryFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	f, err = ParsePrimaryFilter("favorites")
	require.NoError(t, err)
	assert.Equal(t, FilterFavorites, f)

	_, err = ParsePrimaryFilter("starred")
	assert.Error(t, err)
}

func TestItemPatch_Apply(t *testing.T) {
	title := "New"
	empty := ""
	yes := true

	item := &SavedItem{Title: "Old", Notes: "keep me", SourceApp: "com.example"}
	patch := ItemPatch{Title: &title, SourceApp: &empty, IsFavorite: &yes}
	require.False(t, patch.IsEmpty())

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	patch.Apply(item, now)

	assert.Equal(t, "New", item.Title)
	assert.Equal(t, "keep me", item.Notes)
	assert.Empty(t, item.SourceApp)
	assert.True(t, item.IsFavorite)
	assert.Equal(t, now, item.UpdatedAt)

	assert.True(t, ItemPatch{}.IsEmpty())
}

func TestSortByRecency(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	items := []*SavedItem{
		{ID: "a", CreatedAt: base},
		{ID: "c", CreatedAt: base.Add(time.Hour)},
		{ID: "b", CreatedAt: base},
	}

	SortByRecency(items)

	got := []string{items[0].ID, items[1].ID, items[2].ID}
	assert.Equal(t, []string{"c", "b", "a"}, got)
}

func TestSavedItem_TagIDs(t *testing.T) {
	item := &SavedItem{Tags: []*Tag{{ID: "tag-1"}, {ID: "tag-2"}}}
	assert.Equal(t, []string{"tag-1", "tag-2"}, item.TagIDs())
	assert.Empty(t, (&SavedItem{}).TagIDs())
}
