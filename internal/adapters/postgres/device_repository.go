package postgres

import (
	"ImeiGuard/internal/adapters/security"
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type deviceRepository struct {
	db     *DB
	secSvc ports.SecurityPort // phone numbers are encrypted at rest
	log    zerolog.Logger
}

var _ ports.DeviceRepository = (*deviceRepository)(nil) // Ensure compliance

// NewDeviceRepository creates a new repository for device operations.
func NewDeviceRepository(db *DB, secSvc ports.SecurityPort, baseLogger *zerolog.Logger) ports.DeviceRepository {
	return &deviceRepository{
		db:     db,
		secSvc: secSvc,
		log:    baseLogger.With().Str("component", "device_repo").Logger(),
	}
}

const deviceQueryCols = `
	id, imei, brand, model, device_type, status, registration_date,
	last_checked, hashed_national_id, phone_number, owner_name
`

func (r *deviceRepository) encryptPhone(phone string) (*string, error) {
	if phone == "" {
		return nil, nil
	}
	enc, err := security.EncryptField(r.secSvc, phone)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to encrypt phone number")
		return nil, err
	}
	return &enc, nil
}

// Create encrypts the phone number and inserts a new device.
func (r *deviceRepository) Create(ctx context.Context, device *domain.Device) error {
	encPhone, err := r.encryptPhone(device.PhoneNumber)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO devices (
			id, imei, brand, model, device_type, status, registration_date,
			last_checked, hashed_national_id, phone_number, owner_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.pool.Exec(ctx, query,
		device.ID,
		device.IMEI,
		device.Brand,
		device.Model,
		device.Type,
		device.Status,
		device.RegistrationDate,
		device.LastChecked,
		device.HashedNationalID,
		encPhone,
		device.OwnerName,
	)
	if err != nil {
		r.log.Error().Err(err).Str("imei", device.IMEI).Msg("Failed to insert new device")
	}
	return err
}

// scanDevice scans a row into a Device, decrypting the phone number.
func (r *deviceRepository) scanDevice(row pgx.Row) (*domain.Device, error) {
	var d domain.Device
	var encPhone *string

	err := row.Scan(
		&d.ID,
		&d.IMEI,
		&d.Brand,
		&d.Model,
		&d.Type,
		&d.Status,
		&d.RegistrationDate,
		&d.LastChecked,
		&d.HashedNationalID,
		&encPhone,
		&d.OwnerName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		r.log.Error().Err(err).Msg("Failed to scan device row")
		return nil, err
	}

	if encPhone != nil {
		phone, err := security.DecryptField(r.secSvc, *encPhone)
		if err != nil {
			r.log.Error().Err(err).Str("device_id", d.ID).Msg("Failed to decrypt phone number (tampered?)")
			return nil, err
		}
		d.PhoneNumber = phone
	}
	return &d, nil
}

// GetByIMEI returns the earliest registered device with imei, or (nil, nil).
func (r *deviceRepository) GetByIMEI(ctx context.Context, imei string) (*domain.Device, error) {
	query := `SELECT ` + deviceQueryCols + ` FROM devices WHERE imei = $1 ORDER BY seq LIMIT 1`

	device, err := r.scanDevice(r.db.pool.QueryRow(ctx, query, imei))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return device, nil
}

// Update overwrites every mutable column of the device with the same ID.
func (r *deviceRepository) Update(ctx context.Context, device *domain.Device) error {
	encPhone, err := r.encryptPhone(device.PhoneNumber)
	if err != nil {
		return err
	}

	query := `
		UPDATE devices SET
			imei = $2, brand = $3, model = $4, device_type = $5, status = $6,
			registration_date = $7, last_checked = $8, hashed_national_id = $9,
			phone_number = $10, owner_name = $11, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.pool.Exec(ctx, query,
		device.ID,
		device.IMEI,
		device.Brand,
		device.Model,
		device.Type,
		device.Status,
		device.RegistrationDate,
		device.LastChecked,
		device.HashedNationalID,
		encPhone,
		device.OwnerName,
	)
	if err != nil {
		r.log.Error().Err(err).Str("device_id", device.ID).Msg("Failed to update device")
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("device %s not found", device.ID)
	}
	return nil
}

// MarkChecked stamps last_checked without touching the other columns.
func (r *deviceRepository) MarkChecked(ctx context.Context, id, date string) error {
	tag, err := r.db.pool.Exec(ctx, `UPDATE devices SET last_checked = $2, updated_at = NOW() WHERE id = $1`, id, date)
	if err != nil {
		r.log.Error().Err(err).Str("device_id", id).Msg("Failed to stamp last-checked date")
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("device %s not found", id)
	}
	return nil
}

// List returns every device in insertion order.
func (r *deviceRepository) List(ctx context.Context) ([]*domain.Device, error) {
	query := `SELECT ` + deviceQueryCols + ` FROM devices ORDER BY seq`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list devices")
		return nil, err
	}
	defer rows.Close()

	var devices []*domain.Device
	for rows.Next() {
		d, err := r.scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// Seed inserts the given devices unless the table already holds any.
func Seed(ctx context.Context, repo ports.DeviceRepository, devices []*domain.Device) (int, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for _, d := range devices {
		if err := repo.Create(ctx, d); err != nil {
			return 0, fmt.Errorf("seed device %s: %w", d.IMEI, err)
		}
	}
	return len(devices), nil
}
