package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/events"
	"github.com/linkstash/linkstash/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, user_id, name, name_key, created_at`

// prefixedTagColumns is tagColumns qualified for joins against alias t.
const prefixedTagColumns = `t.id, t.user_id, t.name, t.name_key, t.created_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
// ItemCount is left as 0; ListTags fills it.
func scanTag(scanner interface{ Scan(dest ...any) error }, extra ...any) (*domain.Tag, error) {
	var (
		t         domain.Tag
		createdAt string
	)

	dest := append([]any{&t.ID, &t.UserID, &t.Name, &t.NameKey, &createdAt}, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// CreateTag inserts a new tag.
// Returns store.ErrAlreadyExists when the owner already has the name key.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (`+tagColumns+`)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		t.Name,
		t.NameKey,
		formatTime(t.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert tag: %w", err)
	}

	s.emitter.Emit(events.NewTagCreatedEvent(t))
	return nil
}

// GetTag retrieves a tag by its ID.
// Returns store.ErrNotFound if the owner has no such tag.
func (s *Store) GetTag(ctx context.Context, ownerID, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ? AND user_id = ?`, tagID, ownerID)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return t, nil
}

// FindTagsByKeys returns the owner's tags whose name key is in keys.
func (s *Store) FindTagsByKeys(ctx context.Context, ownerID string, keys []string) ([]*domain.Tag, error) {
	if len(keys) == 0 {
		return []*domain.Tag{}, nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, ownerID)
	for _, k := range keys {
		args = append(args, k)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags
		WHERE user_id = ? AND name_key IN (`+placeholders(len(keys))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return tags, nil
}

// ListTags returns the owner's tags ordered by name, with item counts.
func (s *Store) ListTags(ctx context.Context, ownerID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedTagColumns+`, COUNT(l.item_id)
		FROM tags t
		LEFT JOIN item_tag_links l ON l.tag_id = t.id
		WHERE t.user_id = ?
		GROUP BY t.id
		ORDER BY t.name_key ASC, t.id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		var count int
		t, err := scanTag(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		t.ItemCount = count
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return tags, nil
}

// DeleteTag removes a tag; links to it go via ON DELETE CASCADE.
// Returns store.ErrNotFound if the owner has no such tag.
func (s *Store) DeleteTag(ctx context.Context, ownerID, tagID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tags WHERE id = ? AND user_id = ?`, tagID, ownerID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	s.emitter.Emit(events.NewTagDeletedEvent(ownerID, tagID))
	return nil
}

// ReplaceItemTags replaces all links for an item in a single transaction.
// It deletes existing item_tag_links rows and inserts the new set.
func (s *Store) ReplaceItemTags(ctx context.Context, ownerID, itemID string, tagIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := getItem(ctx, tx, ownerID, itemID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_tag_links WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("delete item_tag_links: %w", err)
	}

	now := formatTime(time.Now().UTC())
	unique := slices.Compact(slices.Sorted(slices.Values(tagIDs)))
	for _, tagID := range unique {
		// Selecting from tags keeps links inside the owner scope.
		res, err := tx.ExecContext(ctx, `
			INSERT INTO item_tag_links (item_id, tag_id, user_id, created_at)
			SELECT ?, id, user_id, ? FROM tags WHERE id = ? AND user_id = ?`,
			itemID,
			now,
			tagID,
			ownerID,
		)
		if err != nil {
			return fmt.Errorf("insert item_tag_link: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n == 0 {
			return store.ErrInvalidInput.WithMessage("unknown tag " + tagID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.emitter.Emit(events.NewItemTagsReplacedEvent(ownerID, itemID, unique))
	return nil
}

// GetItemIDsForTag returns the ids of the owner's items linked to a tag.
func (s *Store) GetItemIDsForTag(ctx context.Context, ownerID, tagID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id FROM item_tag_links WHERE tag_id = ? AND user_id = ?`, tagID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query item_tag_links: %w", err)
	}
	defer rows.Close()

	itemIDs := []string{}
	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			return nil, fmt.Errorf("scan item_tag_link: %w", err)
		}
		itemIDs = append(itemIDs, itemID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return itemIDs, nil
}
