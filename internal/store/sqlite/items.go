package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/events"
	"github.com/linkstash/linkstash/internal/store"
)

// itemColumns is the ordered list of columns selected in item queries.
// Must match the scan order in scanItem.
const itemColumns = `id, user_id, url, domain, title, notes, source_app,
	processing_status, is_favorite, is_archived, created_at, updated_at`

// scanItem scans a sql.Row (or sql.Rows via its Scan method) into a domain.SavedItem.
// Tags are left empty; callers attach them.
func scanItem(scanner interface{ Scan(dest ...any) error }) (*domain.SavedItem, error) {
	var (
		item                          domain.SavedItem
		domainName, title, notes, app sql.NullString
		status, createdAt, updatedAt  string
	)

	err := scanner.Scan(
		&item.ID,
		&item.UserID,
		&item.URL,
		&domainName,
		&title,
		&notes,
		&app,
		&status,
		&item.IsFavorite,
		&item.IsArchived,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Domain = domainName.String
	item.Title = title.String
	item.Notes = notes.String
	item.SourceApp = app.String
	item.ProcessingStatus = domain.ProcessingStatus(status)
	item.Tags = []*domain.Tag{}

	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &item, nil
}

// CreateItem inserts a new saved item.
// Returns store.ErrAlreadyExists on id collision.
func (s *Store) CreateItem(ctx context.Context, item *domain.SavedItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.UserID,
		item.URL,
		nullString(item.Domain),
		nullString(item.Title),
		nullString(item.Notes),
		nullString(item.SourceApp),
		string(item.ProcessingStatus),
		item.IsFavorite,
		item.IsArchived,
		formatTime(item.CreatedAt),
		formatTime(item.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert saved_item: %w", err)
	}

	if item.Tags == nil {
		item.Tags = []*domain.Tag{}
	}
	s.emitter.Emit(events.NewItemCreatedEvent(item))
	return nil
}

// GetItem retrieves an item with its tags.
// Returns store.ErrNotFound if the owner has no such item.
func (s *Store) GetItem(ctx context.Context, ownerID, itemID string) (*domain.SavedItem, error) {
	item, err := getItem(ctx, s.db, ownerID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, []*domain.SavedItem{item}); err != nil {
		return nil, err
	}
	return item, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getItem(ctx context.Context, q querier, ownerID, itemID string) (*domain.SavedItem, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM saved_items WHERE id = ? AND user_id = ?`, itemID, ownerID)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get saved_item: %w", err)
	}
	return item, nil
}

// UpdateItem applies patch to an item in a single transaction.
// Returns store.ErrNotFound if the owner has no such item.
func (s *Store) UpdateItem(ctx context.Context, ownerID, itemID string, patch domain.ItemPatch) (*domain.SavedItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	patch.Apply(item, time.Now().UTC())

	_, err = tx.ExecContext(ctx, `
		UPDATE saved_items
		SET url = ?, domain = ?, title = ?, notes = ?, source_app = ?,
			is_favorite = ?, is_archived = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		item.URL,
		nullString(item.Domain),
		nullString(item.Title),
		nullString(item.Notes),
		nullString(item.SourceApp),
		item.IsFavorite,
		item.IsArchived,
		formatTime(item.UpdatedAt),
		itemID,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("update saved_item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if err := s.attachTags(ctx, []*domain.SavedItem{item}); err != nil {
		return nil, err
	}

	s.emitter.Emit(events.NewItemUpdatedEvent(item))
	return item, nil
}

// DeleteItem removes an item; its links go with it via ON DELETE CASCADE.
// Returns store.ErrNotFound if the owner has no such item.
func (s *Store) DeleteItem(ctx context.Context, ownerID, itemID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM saved_items WHERE id = ? AND user_id = ?`, itemID, ownerID)
	if err != nil {
		return fmt.Errorf("delete saved_item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	s.emitter.Emit(events.NewItemDeletedEvent(ownerID, itemID))
	return nil
}

// ListItems returns a page of the owner's items, newest first, with tags attached.
func (s *Store) ListItems(ctx context.Context, q store.ItemQuery) ([]*domain.SavedItem, error) {
	if q.ItemIDs != nil && len(q.ItemIDs) == 0 {
		return []*domain.SavedItem{}, nil
	}

	var (
		where = []string{"user_id = ?"}
		args  = []any{q.OwnerID}
	)

	switch q.Primary {
	case domain.FilterArchived:
		where = append(where, "is_archived = 1")
	case domain.FilterFavorites:
		where = append(where, "is_favorite = 1", "is_archived = 0")
	default:
		where = append(where, "is_archived = 0")
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := likePattern(search)
		where = append(where, `(title LIKE ? ESCAPE '\' OR notes LIKE ? ESCAPE '\' OR url LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	if q.ItemIDs != nil {
		where = append(where, "id IN ("+placeholders(len(q.ItemIDs))+")")
		for _, itemID := range q.ItemIDs {
			args = append(args, itemID)
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, max(q.Offset, 0))

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM saved_items
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query saved_items: %w", err)
	}
	defer rows.Close()

	items := []*domain.SavedItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saved_item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	if err := s.attachTags(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// attachTags loads the tags of items in one query and sets item.Tags.
func (s *Store) attachTags(ctx context.Context, items []*domain.SavedItem) error {
	if len(items) == 0 {
		return nil
	}

	byID := make(map[string]*domain.SavedItem, len(items))
	args := make([]any, 0, len(items))
	for _, item := range items {
		item.Tags = []*domain.Tag{}
		byID[item.ID] = item
		args = append(args, item.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedTagColumns+`, l.item_id
		FROM item_tag_links l
		JOIN tags t ON t.id = l.tag_id
		WHERE l.item_id IN (`+placeholders(len(args))+`)
		ORDER BY t.name_key ASC, t.id ASC`, args...)
	if err != nil {
		return fmt.Errorf("query item tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID string
		tag, err := scanTag(rows, &itemID)
		if err != nil {
			return fmt.Errorf("scan item tag: %w", err)
		}
		if item, ok := byID[itemID]; ok {
			item.Tags = append(item.Tags, tag)
		}
	}
	return rows.Err()
}
