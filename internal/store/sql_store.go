package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/conmon/internal/conmonerr"
)

// SQLStore is the relational-DB Store adapter. It operates against an
// injected *sql.DB rather than a specific driver: no third-party SQL
// driver appears anywhere in the reference corpus this module was
// grounded on, so the driver choice (postgres, mysql, ...) is the
// caller's concern via database/sql's standard driver-registration
// mechanism. SQLStore itself only issues portable, parameterised SQL.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an already-opened, already-pinged *sql.DB.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) UpsertCurrent(ctx context.Context, customerID, connectionID uuid.UUID, items []CheckResults) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return conmonerr.Wrap(conmonerr.CategoryPersistence, fmt.Errorf("store: begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		if err := s.upsertOne(ctx, tx, customerID, connectionID, item); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return conmonerr.Wrap(conmonerr.CategoryPersistence, fmt.Errorf("store: commit transaction: %w", err))
	}
	return nil
}

func (s *SQLStore) upsertOne(ctx context.Context, tx *sql.Tx, customerID, connectionID uuid.UUID, item CheckResults) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, result, result_message, success_count, failure_count,
		       success_percentage, success_resources, failed_resources,
		       exclusions, resource_json, created_at, updated_at
		FROM con_mon_results
		WHERE customer_id = $1 AND connection_id = $2 AND check_id = $3`,
		customerID, connectionID, item.Check.ID)
	if err != nil {
		return conmonerr.Wrap(conmonerr.CategoryPersistence, fmt.Errorf("store: select current rows: %w", err))
	}

	var existing []ConMonResult
	for rows.Next() {
		var r ConMonResult
		var successResources, failedResources, exclusions []byte
		if err := rows.Scan(&r.ID, &r.Result, &r.ResultMessage, &r.SuccessCount, &r.FailureCount,
			&r.SuccessPercentage, &successResources, &failedResources, &exclusions,
			&r.ResourceJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			_ = rows.Close()
			return conmonerr.Wrap(conmonerr.CategoryPersistence, fmt.Errorf("store: scan current row: %w", err))
		}
		_ = json.Unmarshal(successResources, &r.SuccessResources)
		_ = json.Unmarshal(failedResources, &r.FailedResources)
		_ = json.Unmarshal(exclusions, &r.Exclusions)
		r.CustomerID, r.ConnectionID, r.CheckID = customerID, connectionID, item.Check.ID
		existing = append(existing, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return conmonerr.Wrap(conmonerr.CategoryPersistence, err)
	}
	_ = rows.Close()

	now := time.Now().UTC()

	for _, r := range existing {
		if err := insertHistory(ctx, tx, r, now); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM con_mon_results
		WHERE customer_id = $1 AND connection_id = $2 AND check_id = $3`,
		customerID, connectionID, item.Check.ID); err != nil {
		return conmonerr.Wrap(conmonerr.CategoryPersistence, fmt.Errorf("store: delete superseded rows: %w", err))
	}

	next := Aggregate(item.Check.ID, item.Results, item.ResourceJSON)
	next.CustomerID, next.ConnectionID = customerID, connectionID
	next.CreatedAt, next.UpdatedAt = now, now

	successJSON, _ := json.Marshal(next.SuccessResources)
	failedJSON, _ := json.Marshal(next.FailedResources)
	exclusionsJSON, _ := json.Marshal(next.Exclusions)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO con_mon_results
			(id, customer_id, connection_id, check_id, result, result_message,
			 success_count, failure_count, success_percentage,
			 success_resources, failed_resources, exclusions, resource_json,
			 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		next.ID, next.CustomerID, next.ConnectionID, next.CheckID, next.Result, next.ResultMessage,
		next.SuccessCount, next.FailureCount, next.SuccessPercentage,
		successJSON, failedJSON, exclusionsJSON, next.ResourceJSON,
		next.CreatedAt, next.UpdatedAt); err != nil {
		return conmonerr.Wrap(conmonerr.CategoryPersistence, fmt.Errorf("store: insert current row: %w", err))
	}

	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, r ConMonResult, archivedAt time.Time) error {
	successJSON, _ := json.Marshal(r.SuccessResources)
	failedJSON, _ := json.Marshal(r.FailedResources)
	exclusionsJSON, _ := json.Marshal(r.Exclusions)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO con_mon_results_history
			(id, customer_id, connection_id, check_id, result, result_message,
			 success_count, failure_count, success_percentage,
			 success_resources, failed_resources, exclusions, resource_json,
			 created_at, updated_at, archived_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		r.ID, r.CustomerID, r.ConnectionID, r.CheckID, r.Result, r.ResultMessage,
		r.SuccessCount, r.FailureCount, r.SuccessPercentage,
		successJSON, failedJSON, exclusionsJSON, r.ResourceJSON,
		r.CreatedAt, r.UpdatedAt, archivedAt)
	if err != nil {
		return conmonerr.Wrap(conmonerr.CategoryPersistence, fmt.Errorf("store: insert history row: %w", err))
	}
	return nil
}
