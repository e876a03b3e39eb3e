package trustlineop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned for unknown operation ids.
	ErrNotFound = errors.New("trustline operation not found")
	// ErrInvalidTransition is returned when the record already left pending.
	ErrInvalidTransition = errors.New("trustline operation is no longer pending")
)

// Resolution is the final state written to a pending record.
type Resolution struct {
	Status          Status
	TransactionHash string
	ErrorMessage    string
	UpdatedAt       time.Time
}

// Repository persists operation records. Records are never deleted.
type Repository interface {
	Create(ctx context.Context, op Operation) error
	Get(ctx context.Context, id string) (Operation, error)
	Resolve(ctx context.Context, id string, res Resolution) (Operation, error)
	ListByWallet(ctx context.Context, wallet string, limit int) ([]Operation, error)
}

// PostgresRepository stores operations in the trustline_operations table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, wallet_address, asset_code, issuer, operation_type, status,
        transaction_hash, error_message, metadata, created_at, updated_at`

// Create inserts a record.
func (r *PostgresRepository) Create(ctx context.Context, op Operation) error {
	id, err := uuid.Parse(op.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO trustline_operations
        (id, wallet_address, asset_code, issuer, operation_type, status, transaction_hash, error_message, metadata, created_at, updated_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11)`,
		id, op.WalletAddress, op.AssetCode, op.Issuer, string(op.Type), string(op.Status),
		op.TransactionHash, op.ErrorMessage, []byte(op.Metadata), op.CreatedAt.UTC(), op.UpdatedAt.UTC())
	return err
}

// Get fetches a record by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Operation, error) {
	opID, err := uuid.Parse(id)
	if err != nil {
		return Operation{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM trustline_operations WHERE id = $1`, opID)
	return scanOperation(row)
}

// Resolve moves a pending record to its final status in one statement, so
// concurrent resolutions cannot both win.
func (r *PostgresRepository) Resolve(ctx context.Context, id string, res Resolution) (Operation, error) {
	opID, err := uuid.Parse(id)
	if err != nil {
		return Operation{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `UPDATE trustline_operations
        SET status = $2, transaction_hash = COALESCE(NULLIF($3, ''), transaction_hash),
            error_message = NULLIF($4, ''), updated_at = $5
        WHERE id = $1 AND status = 'pending'
        RETURNING `+selectColumns,
		opID, string(res.Status), res.TransactionHash, res.ErrorMessage, res.UpdatedAt.UTC())
	op, err := scanOperation(row)
	if !errors.Is(err, ErrNotFound) {
		return op, err
	}
	// Distinguish an unknown id from one that was already resolved.
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return Operation{}, getErr
	}
	return Operation{}, ErrInvalidTransition
}

// ListByWallet returns the newest records for a wallet first.
func (r *PostgresRepository) ListByWallet(ctx context.Context, wallet string, limit int) ([]Operation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM trustline_operations
        WHERE wallet_address = $1 ORDER BY created_at DESC LIMIT $2`, wallet, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

func scanOperation(row pgx.Row) (Operation, error) {
	var (
		op        Operation
		id        uuid.UUID
		issuer    *string
		txHash    *string
		errMsg    *string
		opType    string
		status    string
		metadata  []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &op.WalletAddress, &op.AssetCode, &issuer, &opType, &status,
		&txHash, &errMsg, &metadata, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Operation{}, ErrNotFound
		}
		return Operation{}, fmt.Errorf("scan trustline operation: %w", err)
	}
	op.ID = id.String()
	op.Type = Type(opType)
	op.Status = Status(status)
	if issuer != nil {
		op.Issuer = *issuer
	}
	if txHash != nil {
		op.TransactionHash = *txHash
	}
	if errMsg != nil {
		op.ErrorMessage = *errMsg
	}
	op.Metadata = metadata
	op.CreatedAt = createdAt.UTC()
	op.UpdatedAt = updatedAt.UTC()
	return op, nil
}
