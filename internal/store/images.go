package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ImageData is a processed image ready to be stored.
type ImageData struct {
	Data []byte
	MIME string
}

// AddItemImages appends images to an item after any existing ones.
func AddItemImages(ctx context.Context, q Querier, itemID string, images []ImageData) error {
	var next int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM item_images WHERE item_id = ?`, itemID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("finding image position: %w", err)
	}

	ts := now()
	for i, img := range images {
		_, err := q.ExecContext(ctx,
			`INSERT INTO item_images (id, item_id, position, data, mime, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			newID(), itemID, next+i, img.Data, img.MIME, ts,
		)
		if err != nil {
			return fmt.Errorf("storing image: %w", err)
		}
	}
	return nil
}

// GetImage returns image data and MIME type. Data is nil if the image does not exist.
func GetImage(ctx context.Context, q Querier, id string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := q.QueryRowContext(ctx,
		`SELECT data, mime FROM item_images WHERE id = ?`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting image: %w", err)
	}
	return data, mime, nil
}

// imageRefs returns image IDs per item in display order.
func imageRefs(ctx context.Context, q Querier, itemIDs []string) (map[string][]string, error) {
	refs := make(map[string][]string, len(itemIDs))
	if len(itemIDs) == 0 {
		return refs, nil
	}

	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx,
		`SELECT item_id, id FROM item_images WHERE item_id IN (`+placeholders(len(itemIDs))+`)
		 ORDER BY item_id, position`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing image references: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID, id string
		if err := rows.Scan(&itemID, &id); err != nil {
			return nil, fmt.Errorf("scanning image reference: %w", err)
		}
		refs[itemID] = append(refs[itemID], id)
	}
	return refs, rows.Err()
}
