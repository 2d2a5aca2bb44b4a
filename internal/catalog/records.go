package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cutline/internal/media"
	"cutline/internal/services"
)

const itemColumns = "id, name, kind, status, origin, source_json, duration_frames, width, height, error_message, created_at, updated_at"

// Upsert writes the current snapshot of a media item. Runtime handles
// and the processing phase are not persisted.
func (s *Store) Upsert(ctx context.Context, item media.Item) error {
	if item.ID == "" {
		return services.Wrap(services.ErrValidation, "catalog", "upsert", "media id is required", nil)
	}
	source, err := media.EncodeSource(item.Source)
	if err != nil {
		return fmt.Errorf("encode source: %w", err)
	}
	origin := ""
	if item.Source != nil {
		origin = string(item.Source.Origin())
	}
	created := item.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := item.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	var duration any
	if item.HasDuration {
		duration = item.Duration
	}

	_, err = s.execWithRetry(ctx,
		`INSERT INTO media_items (`+itemColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            kind = excluded.kind,
            status = excluded.status,
            origin = excluded.origin,
            source_json = excluded.source_json,
            duration_frames = excluded.duration_frames,
            width = excluded.width,
            height = excluded.height,
            error_message = excluded.error_message,
            updated_at = excluded.updated_at`,
		item.ID,
		item.Name,
		string(item.Kind),
		string(item.Status),
		origin,
		string(source),
		duration,
		nullableInt(item.Width),
		nullableInt(item.Height),
		nullableString(item.Error),
		created.UTC().Format(time.RFC3339Nano),
		updated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert media %s: %w", item.ID, err)
	}
	return nil
}

// Get loads one record.
func (s *Store) Get(ctx context.Context, id string) (media.Item, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM media_items WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return media.Item{}, services.Wrap(services.ErrNotFound, "catalog", "get", fmt.Sprintf("media %s", id), nil)
	}
	if err != nil {
		return media.Item{}, fmt.Errorf("get media %s: %w", id, err)
	}
	return item, nil
}

// List returns records in import order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...media.Status) ([]media.Item, error) {
	query := "SELECT " + itemColumns + " FROM media_items"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(statuses)) + ")"
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	var items []media.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Delete removes a record. Deleting an unknown id reports ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM media_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete media %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "catalog", "delete", fmt.Sprintf("media %s", id), nil)
	}
	return nil
}

// Count returns the number of records per status.
func (s *Store) Count(ctx context.Context) (map[media.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM media_items GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count media: %w", err)
	}
	defer rows.Close()
	counts := make(map[media.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[media.Status(status)] = n
	}
	return counts, rows.Err()
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (media.Item, error) {
	var (
		id, name, kind, status, origin, sourceJSON string
		duration, width, height                    sql.NullInt64
		errorMessage                               sql.NullString
		createdRaw, updatedRaw                     string
	)
	if err := scanner.Scan(&id, &name, &kind, &status, &origin, &sourceJSON, &duration, &width, &height, &errorMessage, &createdRaw, &updatedRaw); err != nil {
		return media.Item{}, err
	}
	source, err := media.DecodeSource([]byte(sourceJSON))
	if err != nil {
		return media.Item{}, fmt.Errorf("decode source for %s: %w", id, err)
	}
	item := media.Item{
		ID:          id,
		Name:        name,
		Kind:        media.Kind(kind),
		Status:      media.Status(status),
		Source:      source,
		Duration:    duration.Int64,
		HasDuration: duration.Valid,
		Width:       int(width.Int64),
		Height:      int(height.Int64),
		Error:       errorMessage.String,
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = t
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value <= 0 {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
