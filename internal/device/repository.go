package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/nerrad567/doorman/internal/registry"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Get retrieves a device by address.
	// Returns ErrDeviceNotFound if the device does not exist.
	Get(ctx context.Context, addr Address) (*Device, error)

	// List retrieves all devices ordered by address.
	List(ctx context.Context) ([]Device, error)

	// Upsert inserts a device or replaces the one stored under its address.
	Upsert(ctx context.Context, d Device) error

	// Delete removes a device by address.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, addr Address) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with migrations applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get retrieves a device by address.
func (r *SQLiteRepository) Get(ctx context.Context, addr Address) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT address, name, rssi_reference, created_at FROM devices WHERE address = ?`, addr)

	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device: %w", err)
	}
	return d, nil
}

// List retrieves all devices ordered by address.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT address, name, rssi_reference, created_at FROM devices ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// Upsert validates d and stores it, replacing any device with the same address.
func (r *SQLiteRepository) Upsert(ctx context.Context, d Device) error {
	d, err := Normalize(d)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO devices (address, name, rssi_reference, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			name = excluded.name,
			rssi_reference = excluded.rssi_reference,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		d.Address,
		d.Name,
		d.RSSIReference,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting device: %w", err)
	}

	return nil
}

// Delete removes a device by address.
func (r *SQLiteRepository) Delete(ctx context.Context, addr Address) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE address = ?", addr)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// Source returns a registry source over the devices stored in repo.
// The query runs when iteration starts.
func Source(ctx context.Context, repo Repository) iter.Seq2[registry.Entry[Address, Device], error] {
	return func(yield func(registry.Entry[Address, Device], error) bool) {
		devices, err := repo.List(ctx)
		if err != nil {
			yield(registry.Entry[Address, Device]{}, err)
			return
		}
		for _, d := range devices {
			if !yield(registry.Entry[Address, Device]{Key: d.Key(), Device: d}, nil) {
				return
			}
		}
	}
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var createdAt string

	if err := scanner.Scan(&d.Address, &d.Name, &d.RSSIReference, &createdAt); err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		d.CreatedAt = t
	}
	return &d, nil
}
