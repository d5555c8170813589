// Package storetest is the behavioral contract every store.Store backend must pass.
//
// Backends run it from their own tests:
//
//	func TestContract(t *testing.T) {
//	    suite.Run(t, &storetest.Suite{NewStore: func(t *testing.T) store.Store { ... }})
//	}
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/events"
	"github.com/linkstash/linkstash/internal/store"
)

// Recorder is an EventEmitter that keeps every event it sees.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

// Emit implements store.EventEmitter.
func (r *Recorder) Emit(event any) {
	if evt, ok := event.(events.Event); ok {
		r.mu.Lock()
		r.events = append(r.events, evt)
		r.mu.Unlock()
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []events.EventType {
	evts := r.Events()
	out := make([]events.EventType, len(evts))
	for i, e := range evts {
		out[i] = e.Type
	}
	return out
}

// Suite exercises a store.Store backend.
type Suite struct {
	suite.Suite

	// NewStore returns a fresh, empty store. The suite closes it.
	NewStore func(t *testing.T) store.Store

	store    store.Store
	recorder *Recorder
	ctx      context.Context
	base     time.Time
}

// SetupTest opens a fresh store for every test.
func (s *Suite) SetupTest() {
	s.store = s.NewStore(s.T())
	s.recorder = &Recorder{}
	s.store.SetEmitter(s.recorder)
	s.ctx = context.Background()
	s.base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

// TearDownTest closes the store.
func (s *Suite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

// Item builds an item for owner created n minutes after the suite's base time.
func (s *Suite) item(owner, itemID string, n int) *domain.SavedItem {
	at := s.base.Add(time.Duration(n) * time.Minute)
	return &domain.SavedItem{
		ID:               itemID,
		UserID:           owner,
		URL:              "https://example.com/" + itemID,
		Domain:           "example.com",
		ProcessingStatus: domain.ProcessingComplete,
		CreatedAt:        at,
		UpdatedAt:        at,
	}
}

func (s *Suite) tag(owner, tagID, name, key string) *domain.Tag {
	return &domain.Tag{ID: tagID, UserID: owner, Name: name, NameKey: key, CreatedAt: s.base}
}

func (s *Suite) mustCreateItem(item *domain.SavedItem) {
	s.Require().NoError(s.store.CreateItem(s.ctx, item))
}

func (s *Suite) mustCreateTag(tag *domain.Tag) {
	s.Require().NoError(s.store.CreateTag(s.ctx, tag))
}

func ids(items []*domain.SavedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func tagIDs(tags []*domain.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.ID
	}
	sort.Strings(out)
	return out
}

func (s *Suite) TestCreateAndGetItem() {
	item := s.item("alice", "itm-1", 0)
	item.Title = "Go memory model"
	item.Notes = "read twice"
	item.SourceApp = "com.example.reader"
	item.IsFavorite = true
	s.mustCreateItem(item)

	got, err := s.store.GetItem(s.ctx, "alice", "itm-1")
	s.Require().NoError(err)
	s.Equal(item.URL, got.URL)
	s.Equal("example.com", got.Domain)
	s.Equal("Go memory model", got.Title)
	s.Equal("read twice", got.Notes)
	s.Equal("com.example.reader", got.SourceApp)
	s.Equal(domain.ProcessingComplete, got.ProcessingStatus)
	s.True(got.IsFavorite)
	s.False(got.IsArchived)
	s.True(item.CreatedAt.Equal(got.CreatedAt))
	s.Empty(got.Tags)
	s.NotNil(got.Tags)

	s.Equal([]events.EventType{events.EventItemCreated}, s.recorder.Types())
	s.Equal("alice", s.recorder.Events()[0].UserID)
}

func (s *Suite) TestGetItem_OwnerScoped() {
	s.mustCreateItem(s.item("alice", "itm-1", 0))

	_, err := s.store.GetItem(s.ctx, "bob", "itm-1")
	s.ErrorIs(err, store.ErrNotFound)

	_, err = s.store.GetItem(s.ctx, "alice", "missing")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *Suite) TestCreateItem_DuplicateID() {
	s.mustCreateItem(s.item("alice", "itm-1", 0))
	err := s.store.CreateItem(s.ctx, s.item("alice", "itm-1", 1))
	s.ErrorIs(err, store.ErrAlreadyExists)
}

func (s *Suite) TestUpdateItem() {
	s.mustCreateItem(s.item("alice", "itm-1", 0))

	title := "Renamed"
	archived := true
	got, err := s.store.UpdateItem(s.ctx, "alice", "itm-1", domain.ItemPatch{Title: &title, IsArchived: &archived})
	s.Require().NoError(err)
	s.Equal("Renamed", got.Title)
	s.True(got.IsArchived)

	reread, err := s.store.GetItem(s.ctx, "alice", "itm-1")
	s.Require().NoError(err)
	s.Equal("Renamed", reread.Title)
	s.True(reread.IsArchived)
	s.True(reread.CreatedAt.Equal(s.base), "created_at is immutable")

	empty := ""
	got, err = s.store.UpdateItem(s.ctx, "alice", "itm-1", domain.ItemPatch{Title: &empty})
	s.Require().NoError(err)
	s.Empty(got.Title)

	_, err = s.store.UpdateItem(s.ctx, "bob", "itm-1", domain.ItemPatch{Title: &title})
	s.ErrorIs(err, store.ErrNotFound)

	s.Equal([]events.EventType{events.EventItemCreated, events.EventItemUpdated, events.EventItemUpdated},
		s.recorder.Types())
}

func (s *Suite) TestDeleteItem() {
	s.mustCreateItem(s.item("alice", "itm-1", 0))
	s.mustCreateTag(s.tag("alice", "tag-1", "Work", "work"))
	s.Require().NoError(s.store.ReplaceItemTags(s.ctx, "alice", "itm-1", []string{"tag-1"}))

	s.ErrorIs(s.store.DeleteItem(s.ctx, "bob", "itm-1"), store.ErrNotFound)
	s.Require().NoError(s.store.DeleteItem(s.ctx, "alice", "itm-1"))
	s.ErrorIs(s.store.DeleteItem(s.ctx, "alice", "itm-1"), store.ErrNotFound)

	_, err := s.store.GetItem(s.ctx, "alice", "itm-1")
	s.ErrorIs(err, store.ErrNotFound)

	linked, err := s.store.GetItemIDsForTag(s.ctx, "alice", "tag-1")
	s.Require().NoError(err)
	s.Empty(linked, "links are removed with the item")

	tags, err := s.store.ListTags(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(tags, 1)
	s.Equal(0, tags[0].ItemCount)
}

func (s *Suite) TestListItems_OrderAndPaging() {
	for i := range 25 {
		s.mustCreateItem(s.item("alice", fmt.Sprintf("itm-%02d", i), i))
	}
	s.mustCreateItem(s.item("bob", "itm-bob", 100))

	page, err := s.store.ListItems(s.ctx, store.ItemQuery{OwnerID: "alice", Limit: 20})
	s.Require().NoError(err)
	s.Require().Len(page, 20)
	s.Equal("itm-24", page[0].ID)
	s.Equal("itm-05", page[19].ID)

	rest, err := s.store.ListItems(s.ctx, store.ItemQuery{OwnerID: "alice", Offset: 20, Limit: 20})
	s.Require().NoError(err)
	s.Equal([]string{"itm-04", "itm-03", "itm-02", "itm-01", "itm-00"}, ids(rest))

	all, err := s.store.ListItems(s.ctx, store.ItemQuery{OwnerID: "alice"})
	s.Require().NoError(err)
	s.Len(all, 25)
}

func (s *Suite) TestListItems_TieBreakByID() {
	s.mustCreateItem(s.item("alice", "itm-a", 0))
	s.mustCreateItem(s.item("alice", "itm-c", 0))
	s.mustCreateItem(s.item("alice", "itm-b", 0))

	got, err := s.store.ListItems(s.ctx, store.ItemQuery{OwnerID: "alice"})
	s.Require().NoError(err)
	s.Equal([]string{"itm-c", "itm-b", "itm-a"}, ids(got))
}

func (s *Suite) TestListItems_PrimaryFilter() {
	plain := s.item("alice", "itm-plain", 0)
	fav := s.item("alice", "itm-fav", 1)
	fav.IsFavorite = true
	archived := s.item("alice", "itm-arch", 2)
	archived.IsArchived = true
	favArchived := s.item("alice", "itm-favarch", 3)
	favArchived.IsFavorite = true
	favArchived.IsArchived = true
	for _, it := range []*domain.SavedItem{plain, fav, archived, favArchived} {
		s.mustCreateItem(it)
	}

	tests := []struct {
		filter domain.PrimaryFilter
		want   []string
	}{
		{domain.FilterAll, []string{"itm-fav", "itm-plain"}},
		{"", []string{"itm-fav", "itm-plain"}},
		{domain.FilterFavorites, []string{"itm-fav"}},
		{domain.FilterArchived, []string{"itm-favarch", "itm-arch"}},
	}

	for _, tt := range tests {
		got, err := s.store.ListItems(s.ctx, store.ItemQuery{OwnerID: "alice", Primary: tt.filter})
		s.Require().NoError(err)
		s.Equal(tt.want, ids(got), "filter %q", tt.filter)
		for _, it := range got {
			if tt.filter != domain.FilterArchived {
				s.False(it.IsArchived)
			}
		}
	}
}

func (s *Suite) TestListItems_Search() {
	a := s.item("alice", "itm-a", 0)
	a.Title = "Understanding Go Generics"
	b := s.item("alice", "itm-b", 1)
	b.Notes = "mentions generics in passing"
	c := s.item("alice", "itm-c", 2)
	c.URL = "https://blog.test/GENERICS-deep-dive"
	d := s.item("alice", "itm-d", 3)
	d.Title = "Unrelated xzy"
	e := s.item("alice", "itm-e", 4)
	e.Title = "100% coverage_tips"
	for _, it := range []*domain.SavedItem{a, b, c, d, e} {
		s.mustCreateItem(it)
	}

	got, err := s.store.ListItems(s.ctx, store.ItemQuery{OwnerID: "alice", Search: "generics"})
	s.Require().NoError(err)
	s.Equal([]string{"itm-c", "itm-b", "itm-a"}, ids(got))

	got, err = s.store.ListItems(s.ctx, store.ItemQuery{OwnerID: "alice", Search: "100%"})
	s.Require().NoError(err)
	s.Equal([]string{"itm-e"}, ids(got), "wildcards are literal")

	got, err = s.store.ListItems(s.ctx, store.ItemQuery{OwnerID: "alice", Search: "x_y"})
	s.Require().NoError(err)
	s.Empty(got, "underscore is literal")
}

func (s *Suite) TestListItems_ItemIDs() {
	for i := range 5 {
		s.mustCreateItem(s.item("alice", fmt.Sprintf("itm-%d", i), i))
	}

	got, err := s.store.ListItems(s.ctx, store.ItemQuery{OwnerID: "alice", ItemIDs: []string{"itm-1", "itm-3", "nope"}})
	s.Require().NoError(err)
	s.Equal([]string{"itm-3", "itm-1"}, ids(got))

	got, err = s.store.ListItems(s.ctx, store.ItemQuery{OwnerID: "alice", ItemIDs: []string{}})
	s.Require().NoError(err)
	s.Empty(got)
	s.NotNil(got)
}

func (s *Suite) TestTags_CreateAndUniqueness() {
	s.mustCreateTag(s.tag("alice", "tag-1", "Work", "work"))

	err := s.store.CreateTag(s.ctx, s.tag("alice", "tag-2", "WORK", "work"))
	s.ErrorIs(err, store.ErrAlreadyExists)

	// Same key under another owner is fine.
	s.mustCreateTag(s.tag("bob", "tag-3", "work", "work"))

	got, err := s.store.GetTag(s.ctx, "alice", "tag-1")
	s.Require().NoError(err)
	s.Equal("Work", got.Name)
	s.Equal("work", got.NameKey)

	_, err = s.store.GetTag(s.ctx, "bob", "tag-1")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *Suite) TestTags_FindByKeys() {
	s.mustCreateTag(s.tag("alice", "tag-1", "Work", "work"))
	s.mustCreateTag(s.tag("alice", "tag-2", "Go", "go"))
	s.mustCreateTag(s.tag("bob", "tag-3", "Work", "work"))

	got, err := s.store.FindTagsByKeys(s.ctx, "alice", []string{"work", "go", "missing"})
	s.Require().NoError(err)
	s.Equal([]string{"tag-1", "tag-2"}, tagIDs(got))

	got, err = s.store.FindTagsByKeys(s.ctx, "alice", nil)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *Suite) TestTags_ListWithCounts() {
	s.mustCreateTag(s.tag("alice", "tag-b", "beta", "beta"))
	s.mustCreateTag(s.tag("alice", "tag-a", "Alpha", "alpha"))
	s.mustCreateTag(s.tag("bob", "tag-x", "x", "x"))
	s.mustCreateItem(s.item("alice", "itm-1", 0))
	s.mustCreateItem(s.item("alice", "itm-2", 1))
	s.Require().NoError(s.store.ReplaceItemTags(s.ctx, "alice", "itm-1", []string{"tag-a", "tag-b"}))
	s.Require().NoError(s.store.ReplaceItemTags(s.ctx, "alice", "itm-2", []string{"tag-a"}))

	tags, err := s.store.ListTags(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(tags, 2)
	s.Equal("Alpha", tags[0].Name)
	s.Equal(2, tags[0].ItemCount)
	s.Equal("beta", tags[1].Name)
	s.Equal(1, tags[1].ItemCount)

	empty, err := s.store.ListTags(s.ctx, "carol")
	s.Require().NoError(err)
	s.Empty(empty)
	s.NotNil(empty)
}

func (s *Suite) TestDeleteTag_RemovesLinks() {
	s.mustCreateTag(s.tag("alice", "tag-1", "Work", "work"))
	s.mustCreateTag(s.tag("alice", "tag-2", "Go", "go"))
	s.mustCreateItem(s.item("alice", "itm-1", 0))
	s.Require().NoError(s.store.ReplaceItemTags(s.ctx, "alice", "itm-1", []string{"tag-1", "tag-2"}))

	s.ErrorIs(s.store.DeleteTag(s.ctx, "bob", "tag-1"), store.ErrNotFound)
	s.Require().NoError(s.store.DeleteTag(s.ctx, "alice", "tag-1"))

	item, err := s.store.GetItem(s.ctx, "alice", "itm-1")
	s.Require().NoError(err)
	s.Equal([]string{"tag-2"}, tagIDs(item.Tags))

	// The name key is free again.
	s.mustCreateTag(s.tag("alice", "tag-9", "work", "work"))

	types := s.recorder.Types()
	s.Contains(types, events.EventTagDeleted)
}

func (s *Suite) TestReplaceItemTags() {
	s.mustCreateItem(s.item("alice", "itm-1", 0))
	s.mustCreateTag(s.tag("alice", "tag-1", "Work", "work"))
	s.mustCreateTag(s.tag("alice", "tag-2", "Go", "go"))
	s.mustCreateTag(s.tag("bob", "tag-bob", "Work", "work"))

	s.Require().NoError(s.store.ReplaceItemTags(s.ctx, "alice", "itm-1", []string{"tag-1", "tag-2", "tag-1"}))
	item, err := s.store.GetItem(s.ctx, "alice", "itm-1")
	s.Require().NoError(err)
	s.Equal([]string{"tag-1", "tag-2"}, tagIDs(item.Tags))

	s.Require().NoError(s.store.ReplaceItemTags(s.ctx, "alice", "itm-1", []string{"tag-2"}))
	item, err = s.store.GetItem(s.ctx, "alice", "itm-1")
	s.Require().NoError(err)
	s.Equal([]string{"tag-2"}, tagIDs(item.Tags))

	// A foreign tag aborts the whole replacement.
	err = s.store.ReplaceItemTags(s.ctx, "alice", "itm-1", []string{"tag-1", "tag-bob"})
	s.ErrorIs(err, store.ErrInvalidInput)
	item, err = s.store.GetItem(s.ctx, "alice", "itm-1")
	s.Require().NoError(err)
	s.Equal([]string{"tag-2"}, tagIDs(item.Tags), "failed replacement leaves links untouched")

	s.Require().NoError(s.store.ReplaceItemTags(s.ctx, "alice", "itm-1", []string{}))
	item, err = s.store.GetItem(s.ctx, "alice", "itm-1")
	s.Require().NoError(err)
	s.Empty(item.Tags)

	err = s.store.ReplaceItemTags(s.ctx, "bob", "itm-1", []string{"tag-bob"})
	s.ErrorIs(err, store.ErrNotFound)

	s.Contains(s.recorder.Types(), events.EventItemTagsReplaced)
}

func (s *Suite) TestGetItemIDsForTag() {
	s.mustCreateTag(s.tag("alice", "tag-1", "Work", "work"))
	for i := range 3 {
		s.mustCreateItem(s.item("alice", fmt.Sprintf("itm-%d", i), i))
	}
	s.Require().NoError(s.store.ReplaceItemTags(s.ctx, "alice", "itm-0", []string{"tag-1"}))
	s.Require().NoError(s.store.ReplaceItemTags(s.ctx, "alice", "itm-2", []string{"tag-1"}))

	got, err := s.store.GetItemIDsForTag(s.ctx, "alice", "tag-1")
	s.Require().NoError(err)
	sort.Strings(got)
	s.Equal([]string{"itm-0", "itm-2"}, got)

	got, err = s.store.GetItemIDsForTag(s.ctx, "bob", "tag-1")
	s.Require().NoError(err)
	s.Empty(got)
	s.NotNil(got)
}

func (s *Suite) TestListItems_AttachesTags() {
	s.mustCreateTag(s.tag("alice", "tag-1", "Work", "work"))
	s.mustCreateItem(s.item("alice", "itm-1", 0))
	s.mustCreateItem(s.item("alice", "itm-2", 1))
	s.Require().NoError(s.store.ReplaceItemTags(s.ctx, "alice", "itm-1", []string{"tag-1"}))

	got, err := s.store.ListItems(s.ctx, store.ItemQuery{OwnerID: "alice"})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Empty(got[0].Tags)
	s.Require().Len(got[1].Tags, 1)
	s.Equal("Work", got[1].Tags[0].Name)
}

func (s *Suite) TestConcurrentCreateTag_OneWinner() {
	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		exists  int
	)

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CreateTag(s.ctx, s.tag("alice", fmt.Sprintf("tag-%d", i), "Work", "work"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, store.ErrAlreadyExists):
				exists++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, created)
	s.Equal(workers-1, exists)

	tags, err := s.store.ListTags(s.ctx, "alice")
	s.Require().NoError(err)
	s.Len(tags, 1)
}
