package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/walletledger/internal/models"
	"github.com/mmynk/walletledger/internal/storage"
)

const recordColumns = `id, account_id, category_id, debt_id, transfer_id, planned_id, value, payee, description, datetime, created_at, updated_at`

// CreateRecord persists a new record and its labels in one transaction.
func (s *SQLiteStore) CreateRecord(ctx context.Context, record *models.Record) error {
	// Generate ID and timestamps if not set
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = nowMillis()
	}
	if record.UpdatedAt == 0 {
		record.UpdatedAt = record.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.AccountID, record.CategoryID,
		nullString(record.DebtID), nullString(record.TransferID), nullString(record.PlannedID),
		record.Value, nullString(record.Payee), nullString(record.Description),
		record.Datetime, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	if err := insertLabels(ctx, tx, record.ID, record.LabelIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRecord retrieves a record by ID, including its labels.
func (s *SQLiteStore) GetRecord(ctx context.Context, recordID string) (*models.Record, error) {
	record, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`,
		recordID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record %s: %w", recordID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if err := s.loadLabels(ctx, []*models.Record{record}); err != nil {
		return nil, err
	}

	return record, nil
}

// UpdateRecord replaces the mutable fields and labels of an existing record.
func (s *SQLiteStore) UpdateRecord(ctx context.Context, record *models.Record) error {
	record.UpdatedAt = nowMillis()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE records SET account_id = ?, category_id = ?, debt_id = ?, transfer_id = ?, planned_id = ?,
		 value = ?, payee = ?, description = ?, datetime = ?, updated_at = ?
		 WHERE id = ?`,
		record.AccountID, record.CategoryID,
		nullString(record.DebtID), nullString(record.TransferID), nullString(record.PlannedID),
		record.Value, nullString(record.Payee), nullString(record.Description),
		record.Datetime, record.UpdatedAt, record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check record update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", record.ID, storage.ErrNotFound)
	}

	// Replace labels
	if _, err := tx.ExecContext(ctx, "DELETE FROM record_labels WHERE record_id = ?", record.ID); err != nil {
		return fmt.Errorf("failed to clear record labels: %w", err)
	}
	if err := insertLabels(ctx, tx, record.ID, record.LabelIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteRecord removes a record by ID. Its labels go with it.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, recordID string) error {
	return s.execOne(ctx, "record", recordID, "DELETE FROM records WHERE id = ?", recordID)
}

// ListRecordsByAccount retrieves the records of an account within q.
func (s *SQLiteStore) ListRecordsByAccount(ctx context.Context, accountID string, q storage.RangeQuery) ([]*models.Record, error) {
	clause, args := rangeClause(q)
	return s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM records WHERE account_id = ?`+clause,
		append([]interface{}{accountID}, args...)...,
	)
}

// ListRecordsByDebt retrieves every record referencing a debt, oldest first.
func (s *SQLiteStore) ListRecordsByDebt(ctx context.Context, debtID string) ([]*models.Record, error) {
	return s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM records WHERE debt_id = ? ORDER BY datetime, id`,
		debtID,
	)
}

// ListRecordsByTransfer retrieves the records sharing a transfer ID.
func (s *SQLiteStore) ListRecordsByTransfer(ctx context.Context, transferID string) ([]*models.Record, error) {
	return s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM records WHERE transfer_id = ? ORDER BY datetime, id`,
		transferID,
	)
}

// SetRecordsPayeeByDebt rewrites the payee of every record referencing a debt.
// Values are left untouched.
func (s *SQLiteStore) SetRecordsPayeeByDebt(ctx context.Context, debtID, payee string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET payee = ?, updated_at = ? WHERE debt_id = ?`,
		nullString(payee), nowMillis(), debtID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to rename payee of debt records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check payee rename: %w", err)
	}
	return n, nil
}

// queryRecords runs a record query, then loads the labels once the rows are closed.
func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	rows.Close()

	if err := s.loadLabels(ctx, records); err != nil {
		return nil, err
	}

	return records, nil
}

// labelBatchSize keeps IN clauses well below SQLite's bound parameter limit.
const labelBatchSize = 500

// loadLabels fills LabelIDs of the given records, one query per batch.
func (s *SQLiteStore) loadLabels(ctx context.Context, records []*models.Record) error {
	for start := 0; start < len(records); start += labelBatchSize {
		end := min(start+labelBatchSize, len(records))
		if err := s.loadLabelBatch(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) loadLabelBatch(ctx context.Context, records []*models.Record) error {
	byID := make(map[string]*models.Record, len(records))
	args := make([]interface{}, len(records))
	for i, r := range records {
		byID[r.ID] = r
		args[i] = r.ID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, label_id FROM record_labels
		 WHERE record_id IN (?`+repeatPlaceholder(len(records)-1)+`)
		 ORDER BY label_id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to get record labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recordID, labelID string
		if err := rows.Scan(&recordID, &labelID); err != nil {
			return fmt.Errorf("failed to scan record label: %w", err)
		}
		if r, ok := byID[recordID]; ok {
			r.LabelIDs = append(r.LabelIDs, labelID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate record labels: %w", err)
	}

	return nil
}

func insertLabels(ctx context.Context, tx *sql.Tx, recordID string, labelIDs []string) error {
	for _, labelID := range labelIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO record_labels (record_id, label_id) VALUES (?, ?)",
			recordID, labelID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record label: %w", err)
		}
	}
	return nil
}

func scanRecord(row rowScanner) (*models.Record, error) {
	record := &models.Record{}
	var debtID, transferID, plannedID, payee, description sql.NullString
	err := row.Scan(
		&record.ID,
		&record.AccountID,
		&record.CategoryID,
		&debtID,
		&transferID,
		&plannedID,
		&record.Value,
		&payee,
		&description,
		&record.Datetime,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.DebtID = debtID.String
	record.TransferID = transferID.String
	record.PlannedID = plannedID.String
	record.Payee = payee.String
	record.Description = description.String

	return record, nil
}
