package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erazemk/rewear/internal/model"
)

// ItemFields are the owner-editable attributes of a listing.
type ItemFields struct {
	Title       string
	Description string
	Category    model.Category
	Type        model.ItemType
	Size        model.Size
	Condition   model.Condition
	Tags        []string
	PointsValue int
	Brand       string
	Color       string
	Material    string
	Location    string
}

// ItemFilter narrows ListItems. Zero values do not filter.
type ItemFilter struct {
	OwnerID  string
	Category model.Category
	Type     model.ItemType
	Size     model.Size
	Status   model.ItemStatus
	Approved *bool
	Search   string
	Limit    int
	Offset   int
}

const itemColumns = `i.id, i.owner_id, i.title, i.description, i.category, i.type, i.size, i.condition,
	i.tags, i.points_value, i.status, i.is_approved, i.brand, i.color, i.material, i.location,
	i.created_at, i.updated_at, u.name`

func scanItem(row scanner) (*model.Item, error) {
	item := &model.Item{}
	var tags, ownerName string
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Title, &item.Description, &item.Category,
		&item.Type, &item.Size, &item.Condition, &tags, &item.PointsValue, &item.Status,
		&item.IsApproved, &item.Brand, &item.Color, &item.Material, &item.Location,
		&item.CreatedAt, &item.UpdatedAt, &ownerName); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	item.Images = []string{}
	item.Owner = &model.UserSummary{ID: item.OwnerID, Name: ownerName}
	return item, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

// CreateItem creates a listing with its images in a single transaction.
// Moderated listings start pending and unapproved; others are available at once.
func CreateItem(ctx context.Context, db *sql.DB, ownerID string, f ItemFields, images []ImageData, moderated bool) (*model.Item, error) {
	if len(images) == 0 {
		return nil, model.Invalid("images", "at least one image is required")
	}
	tags, err := encodeTags(f.Tags)
	if err != nil {
		return nil, err
	}

	status, approved := model.ItemStatusAvailable, true
	if moderated {
		status, approved = model.ItemStatusPending, false
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id := newID()
	ts := now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, owner_id, title, description, category, type, size, condition, tags,
		                    points_value, status, is_approved, brand, color, material, location,
		                    created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, f.Title, f.Description, f.Category, f.Type, f.Size, f.Condition, tags,
		f.PointsValue, status, approved, f.Brand, f.Color, f.Material, f.Location, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	if err := AddItemImages(ctx, tx, id, images); err != nil {
		return nil, err
	}

	item, err := GetItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item: %w", err)
	}
	return item, nil
}

// GetItem returns an item by ID with its image references and owner summary.
func GetItem(ctx context.Context, q Querier, id string) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items i JOIN users u ON u.id = i.owner_id WHERE i.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	refs, err := imageRefs(ctx, q, []string{item.ID})
	if err != nil {
		return nil, err
	}
	if r := refs[item.ID]; r != nil {
		item.Images = r
	}
	return item, nil
}

// ListItems returns items matching the filter, newest first, together with
// the total number of matches ignoring Limit and Offset.
func ListItems(ctx context.Context, q Querier, f ItemFilter) ([]model.Item, int, error) {
	where := ` FROM items i JOIN users u ON u.id = i.owner_id WHERE 1=1`
	var args []any

	if f.OwnerID != "" {
		where += ` AND i.owner_id = ?`
		args = append(args, f.OwnerID)
	}
	if f.Category != "" {
		where += ` AND i.category = ?`
		args = append(args, f.Category)
	}
	if f.Type != "" {
		where += ` AND i.type = ?`
		args = append(args, f.Type)
	}
	if f.Size != "" {
		where += ` AND i.size = ?`
		args = append(args, f.Size)
	}
	if f.Status != "" {
		where += ` AND i.status = ?`
		args = append(args, f.Status)
	}
	if f.Approved != nil {
		where += ` AND i.is_approved = ?`
		args = append(args, *f.Approved)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		where += ` AND (lower(i.title) LIKE ? ESCAPE '\' OR lower(i.description) LIKE ? ESCAPE '\' OR lower(i.tags) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	query := `SELECT ` + itemColumns + where + ` ORDER BY i.created_at DESC, i.rowid DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	var ids []string
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
		ids = append(ids, item.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	rows.Close()

	refs, err := imageRefs(ctx, q, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		if r := refs[items[i].ID]; r != nil {
			items[i].Images = r
		}
	}
	return items, total, nil
}

// ListItemsByOwner returns every item owned by a user regardless of status.
func ListItemsByOwner(ctx context.Context, q Querier, ownerID string) ([]model.Item, error) {
	items, _, err := ListItems(ctx, q, ItemFilter{OwnerID: ownerID})
	return items, err
}

// UpdateItem replaces an item's editable fields and appends new images.
func UpdateItem(ctx context.Context, db *sql.DB, id string, f ItemFields, images []ImageData) (*model.Item, error) {
	tags, err := encodeTags(f.Tags)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE items SET title = ?, description = ?, category = ?, type = ?, size = ?, condition = ?,
		                  tags = ?, points_value = ?, brand = ?, color = ?, material = ?, location = ?,
		                  updated_at = ?
		 WHERE id = ?`,
		f.Title, f.Description, f.Category, f.Type, f.Size, f.Condition, tags, f.PointsValue,
		f.Brand, f.Color, f.Material, f.Location, now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	if err := requireRow(result, "item"); err != nil {
		return nil, err
	}

	if len(images) > 0 {
		if err := AddItemImages(ctx, tx, id, images); err != nil {
			return nil, err
		}
	}

	item, err := GetItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item update: %w", err)
	}
	return item, nil
}

// UpdateItemStatus changes an item's status and, if approved is non-nil, its
// approval flag.
func UpdateItemStatus(ctx context.Context, q Querier, id string, status model.ItemStatus, approved *bool) error {
	var result sql.Result
	var err error
	if approved != nil {
		result, err = q.ExecContext(ctx,
			`UPDATE items SET status = ?, is_approved = ?, updated_at = ? WHERE id = ?`,
			status, *approved, now(), id,
		)
	} else {
		result, err = q.ExecContext(ctx,
			`UPDATE items SET status = ?, updated_at = ? WHERE id = ?`,
			status, now(), id,
		)
	}
	if err != nil {
		return fmt.Errorf("setting item status: %w", err)
	}
	return requireRow(result, "item")
}

// DeleteItem hard-deletes an item and its images.
func DeleteItem(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return requireRow(result, "item")
}

// ItemSummaries loads the denormalized views of the given items keyed by ID.
func ItemSummaries(ctx context.Context, q Querier, ids []string) (map[string]*model.ItemSummary, error) {
	out := make(map[string]*model.ItemSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx,
		`SELECT id, title, points_value, status, owner_id FROM items WHERE id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("loading item summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s := &model.ItemSummary{Images: []string{}}
		if err := rows.Scan(&s.ID, &s.Title, &s.PointsValue, &s.Status, &s.OwnerID); err != nil {
			return nil, fmt.Errorf("scanning item summary: %w", err)
		}
		out[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	refs, err := imageRefs(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for id, s := range out {
		if r := refs[id]; r != nil {
			s.Images = r
		}
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
