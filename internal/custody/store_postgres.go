package custody

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"caritas/internal/credential"
	"caritas/internal/vault"
)

// PostgresStore persists custody records in PostgreSQL. The schema carries a
// uniqueness constraint per owner column plus a check that exactly one owner
// reference is set.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed custody store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, record Record) error {
	vaultBytes, err := json.Marshal(record.Vault)
	if err != nil {
		return fmt.Errorf("marshal custody vault: %w", err)
	}
	vcBytes, err := marshalVC(record.VC)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO custody_records (custody_id, user_id, admin_id, vault, vc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		record.CustodyID,
		nullable(record.UserID),
		nullable(record.AdminID),
		vaultBytes,
		vcBytes,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateOwner
	}
	if err != nil {
		return fmt.Errorf("create custody record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, custodyID string) (Record, error) {
	query := `
		SELECT custody_id, user_id, admin_id, vault, vc, created_at, updated_at
		FROM custody_records
		WHERE custody_id = $1
	`
	return scanRecord(s.db.QueryRowContext(ctx, query, custodyID))
}

func (s *PostgresStore) FindByOwner(ctx context.Context, ownerID string) (Record, error) {
	query := `
		SELECT custody_id, user_id, admin_id, vault, vc, created_at, updated_at
		FROM custody_records
		WHERE user_id = $1 OR admin_id = $1
	`
	return scanRecord(s.db.QueryRowContext(ctx, query, ownerID))
}

func (s *PostgresStore) UpdateVC(ctx context.Context, custodyID string, vc credential.Credential) error {
	vcBytes, err := json.Marshal(vc)
	if err != nil {
		return fmt.Errorf("marshal custody credential: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE custody_records SET vc = $2, updated_at = now() WHERE custody_id = $1`,
		custodyID, vcBytes,
	)
	if err != nil {
		return fmt.Errorf("update custody credential: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update custody credential: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type custodyRow interface {
	Scan(dest ...any) error
}

func scanRecord(row custodyRow) (Record, error) {
	var record Record
	var userID, adminID sql.NullString
	var vaultBytes, vcBytes []byte
	err := row.Scan(&record.CustodyID, &userID, &adminID, &vaultBytes, &vcBytes, &record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan custody record: %w", err)
	}

	record.UserID = userID.String
	record.AdminID = adminID.String

	var v vault.Vault
	if err := json.Unmarshal(vaultBytes, &v); err != nil {
		return Record{}, fmt.Errorf("unmarshal custody vault: %w", err)
	}
	record.Vault = v

	if len(vcBytes) > 0 {
		var vc credential.Credential
		if err := json.Unmarshal(vcBytes, &vc); err != nil {
			return Record{}, fmt.Errorf("unmarshal custody credential: %w", err)
		}
		record.VC = &vc
	}
	return record, nil
}

func marshalVC(vc *credential.Credential) ([]byte, error) {
	if vc == nil {
		return nil, nil
	}
	b, err := json.Marshal(vc)
	if err != nil {
		return nil, fmt.Errorf("marshal custody credential: %w", err)
	}
	return b, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
