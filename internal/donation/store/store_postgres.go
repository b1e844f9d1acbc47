package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"foodbridge/internal/donation/models"
	"foodbridge/internal/platform/postgres"
	"foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
	"foodbridge/pkg/platform/tx"
)

const donationColumns = `id, donor_id, donor_name, phone, address, food_details, quantity,
	best_before_time, status, ngo_id, ngo_name, created_at, picked_at`

// PostgresStore persists donations in PostgreSQL. Claims lock the row for
// the duration of the transition.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed donation store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, d *models.Donation) error {
	if d == nil {
		return fmt.Errorf("donation is required: %w", sentinel.ErrInvalidState)
	}
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx,
		`INSERT INTO donations (id, donor_id, donor_name, phone, address, food_details, quantity,
			best_before_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(d.ID), uuid.UUID(d.DonorID), d.DonorName, d.Phone, d.Address, d.FoodDetails,
		d.Quantity, d.BestBeforeTime, string(d.Status), d.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("donation %s: %w", d.ID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

// List returns donations newest first. An empty status lists everything.
func (s *PostgresStore) List(ctx context.Context, status models.Status) ([]*models.Donation, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+donationColumns+` FROM donations
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at DESC, seq DESC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	out := []*models.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.DonationID) (*models.Donation, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = $1`, uuid.UUID(id))
	return scanOne(row)
}

// UpdateStatus picks the donation inside a transaction holding the row lock,
// so concurrent claims serialize and only the first one succeeds.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id domain.DonationID, status models.Status, claimant models.Claimant, at time.Time) (*models.Donation, error) {
	if status != models.StatusPicked {
		return nil, fmt.Errorf("transition to %q: %w", status, sentinel.ErrInvalidState)
	}

	var picked *models.Donation
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		exec := tx.ExecutorFrom(ctx, s.db)
		d, err := scanOne(exec.QueryRowContext(ctx,
			`SELECT `+donationColumns+` FROM donations WHERE id = $1 FOR UPDATE`, uuid.UUID(id)))
		if err != nil {
			return err
		}
		if err := d.Pick(claimant, at); err != nil {
			return err
		}
		res, err := exec.ExecContext(ctx,
			`UPDATE donations SET status = $2, ngo_id = $3, ngo_name = $4, picked_at = $5
			WHERE id = $1 AND status = 'open'`,
			uuid.UUID(id), string(d.Status), uuid.UUID(claimant.ID), claimant.Name, at,
		)
		if err != nil {
			return fmt.Errorf("update donation: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update donation: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("donation %s: %w", id, sentinel.ErrAlreadyUsed)
		}
		picked = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return picked, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*models.Donation, error) {
	d, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("donation: %w", sentinel.ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

func scanDonation(row scanner) (*models.Donation, error) {
	var (
		d        models.Donation
		id       uuid.UUID
		donorID  uuid.UUID
		status   string
		ngoID    uuid.NullUUID
		ngoName  sql.NullString
		pickedAt sql.NullTime
	)
	err := row.Scan(&id, &donorID, &d.DonorName, &d.Phone, &d.Address, &d.FoodDetails, &d.Quantity,
		&d.BestBeforeTime, &status, &ngoID, &ngoName, &d.CreatedAt, &pickedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan donation: %w", err)
	}
	d.ID = domain.DonationID(id)
	d.DonorID = domain.UserID(donorID)
	d.Status = models.Status(status)
	if ngoID.Valid {
		d.Claimant = &models.Claimant{ID: domain.UserID(ngoID.UUID), Name: ngoName.String}
	}
	if pickedAt.Valid {
		t := pickedAt.Time
		d.PickedAt = &t
	}
	return &d, nil
}
