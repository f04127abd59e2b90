package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/phrazzld/conmon/internal/conmonerr"
)

const (
	currentFileName = "con_mon_results.csv"
	historyFileName = "con_mon_results_history.csv"
	lockFileName    = ".con_mon_results.lock"
)

var currentColumns = []string{
	"id", "customer_id", "connection_id", "check_id", "result", "result_message",
	"success_count", "failure_count", "success_percentage",
	"success_resources", "failed_resources", "exclusions", "resource_json",
	"created_at", "updated_at",
}

var historyColumns = append(append([]string{}, currentColumns...), "archived_at")

// CSVStore is the CSV-table-files Store adapter: the same dispatcher
// surface as SQLStore, backed by a directory of .csv files with stable
// column lists. Writes are serialised with an advisory lock file and
// committed via rename-on-commit temp files so readers never observe
// partial state.
type CSVStore struct {
	dir string
}

// NewCSVStore creates a CSV store rooted at dir, which must already
// exist.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

func (s *CSVStore) UpsertCurrent(ctx context.Context, customerID, connectionID uuid.UUID, items []CheckResults) error {
	lock := flock.New(filepath.Join(s.dir, lockFileName))
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		return conmonerr.Wrap(conmonerr.CategoryPersistence, fmt.Errorf("store: acquire CSV advisory lock: %w", err))
	}
	defer func() { _ = lock.Unlock() }()

	currentRows, err := readCSVRows(filepath.Join(s.dir, currentFileName), currentColumns)
	if err != nil {
		return conmonerr.Wrap(conmonerr.CategoryPersistence, err)
	}

	now := time.Now().UTC()
	var historyAppend [][]string

	for _, item := range items {
		var kept [][]string
		for _, row := range currentRows {
			if rowMatches(row, currentColumns, customerID, connectionID, item.Check.ID) {
				historyAppend = append(historyAppend, append(append([]string{}, row...), now.Format(time.RFC3339Nano)))
				continue
			}
			kept = append(kept, row)
		}
		currentRows = kept

		next := Aggregate(item.Check.ID, item.Results, item.ResourceJSON)
		next.CustomerID, next.ConnectionID = customerID, connectionID
		next.CreatedAt, next.UpdatedAt = now, now
		currentRows = append(currentRows, conMonResultToRow(next))
	}

	if err := appendCSVRows(filepath.Join(s.dir, historyFileName), historyColumns, historyAppend); err != nil {
		return conmonerr.Wrap(conmonerr.CategoryPersistence, err)
	}
	if err := writeCSVAtomic(filepath.Join(s.dir, currentFileName), currentColumns, currentRows); err != nil {
		return conmonerr.Wrap(conmonerr.CategoryPersistence, err)
	}
	return nil
}

func rowMatches(row []string, columns []string, customerID, connectionID, checkID uuid.UUID) bool {
	idx := func(col string) int {
		for i, c := range columns {
			if c == col {
				return i
			}
		}
		return -1
	}
	ci, coi, chi := idx("customer_id"), idx("connection_id"), idx("check_id")
	if ci < 0 || coi < 0 || chi < 0 || ci >= len(row) || coi >= len(row) || chi >= len(row) {
		return false
	}
	return row[ci] == customerID.String() && row[coi] == connectionID.String() && row[chi] == checkID.String()
}

func conMonResultToRow(r ConMonResult) []string {
	successJSON, _ := json.Marshal(r.SuccessResources)
	failedJSON, _ := json.Marshal(r.FailedResources)
	exclusionsJSON, _ := json.Marshal(r.Exclusions)
	return []string{
		r.ID.String(), r.CustomerID.String(), r.ConnectionID.String(), r.CheckID.String(),
		string(r.Result), r.ResultMessage,
		strconv.Itoa(r.SuccessCount), strconv.Itoa(r.FailureCount),
		strconv.FormatFloat(r.SuccessPercentage, 'f', -1, 64),
		string(successJSON), string(failedJSON), string(exclusionsJSON), r.ResourceJSON,
		r.CreatedAt.Format(time.RFC3339Nano), r.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func readCSVRows(path string, columns []string) ([][]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[1:], nil // drop header
}

func appendCSVRows(path string, columns []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	existing, err := readCSVRows(path, columns)
	if err != nil {
		return err
	}
	return writeCSVAtomic(path, columns, append(existing, rows...))
}

// writeCSVAtomic writes rows to a temp file in the same directory as
// path, then renames it into place; readers never see a half-written
// file.
func writeCSVAtomic(path string, columns []string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*.csv")
	if err != nil {
		return fmt.Errorf("store: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	if err := w.Write(columns); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store: writing header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
			return fmt.Errorf("store: writing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store: flushing csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store: renaming temp file into place: %w", err)
	}
	return nil
}
