package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/domain/models"
)

// Sheet names and headers of the two append-only log worksheets. The
// recorder creates them on first use.
const (
	ChangeLogSheet   = "Change Log"
	ConsumptionSheet = "Consumption"

	timeFormat = "2006-01-02 15:04:05"
)

var (
	changeLogHeaders   = []string{"Time", "User ID", "Username", "Action", "Sheet", "Detail", "Note"}
	consumptionHeaders = []string{"Time", "User ID", "Username", "Item Type", "Detail", "Qty Taken", "Item Note", "Reason"}
)

// Store is the spreadsheet surface the logs append to.
type Store interface {
	EnsureSheet(ctx context.Context, sheet string, headers []string) error
	AppendRow(ctx context.Context, sheet string, values []string) error
	ListRows(ctx context.Context, sheet string) ([]models.Record, error)
}

// Archive receives a copy of every entry for long-term queryable storage.
// Archive failures never fail the primary append.
type Archive interface {
	ArchiveChange(ctx context.Context, entry models.AuditLogEntry) error
	ArchiveConsumption(ctx context.Context, entry models.ConsumptionLogEntry) error
}

// Recorder appends audit and consumption entries. It is the single sink both
// logs flow through; callers pair every ledger mutation with exactly one
// RecordChange and every draw-down with one RecordConsumption.
type Recorder struct {
	store   Store
	archive Archive
	logger  *zap.Logger
	now     func() time.Time
}

// NewRecorder constructs a recorder. archive may be nil.
func NewRecorder(store Store, archive Archive, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, archive: archive, logger: logger, now: time.Now}
}

// RecordChange appends one change log entry.
func (r *Recorder) RecordChange(ctx context.Context, entry models.AuditLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}
	if err := r.store.EnsureSheet(ctx, ChangeLogSheet, changeLogHeaders); err != nil {
		return fmt.Errorf("ensure change log sheet: %w", err)
	}
	values := []string{
		entry.Timestamp.Format(timeFormat),
		strconv.FormatInt(entry.UserID, 10),
		entry.Username,
		string(entry.Action),
		entry.SheetName,
		entry.Detail,
		entry.Note,
	}
	if err := r.store.AppendRow(ctx, ChangeLogSheet, values); err != nil {
		return fmt.Errorf("append change log entry: %w", err)
	}

	if r.archive != nil {
		if err := r.archive.ArchiveChange(ctx, entry); err != nil {
			r.logger.Warn("change archive write failed", zap.Error(err))
		}
	}
	return nil
}

// RecordConsumption appends one consumption log entry.
func (r *Recorder) RecordConsumption(ctx context.Context, entry models.ConsumptionLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}
	if err := r.store.EnsureSheet(ctx, ConsumptionSheet, consumptionHeaders); err != nil {
		return fmt.Errorf("ensure consumption sheet: %w", err)
	}
	values := []string{
		entry.Timestamp.Format(timeFormat),
		strconv.FormatInt(entry.UserID, 10),
		entry.Username,
		entry.ItemType,
		entry.Detail,
		strconv.Itoa(entry.Quantity),
		entry.ItemNote,
		entry.Reason,
	}
	if err := r.store.AppendRow(ctx, ConsumptionSheet, values); err != nil {
		return fmt.Errorf("append consumption entry: %w", err)
	}

	if r.archive != nil {
		if err := r.archive.ArchiveConsumption(ctx, entry); err != nil {
			r.logger.Warn("consumption archive write failed", zap.Error(err))
		}
	}
	return nil
}

// RecentChanges returns the newest n change entries, oldest first.
func (r *Recorder) RecentChanges(ctx context.Context, n int) ([]models.AuditLogEntry, error) {
	rows, err := r.store.ListRows(ctx, ChangeLogSheet)
	if err != nil {
		return nil, fmt.Errorf("list change log: %w", err)
	}
	rows = tail(rows, n)
	entries := make([]models.AuditLogEntry, 0, len(rows))
	for _, rec := range rows {
		ts, _ := time.Parse(timeFormat, rec.Get("Time"))
		uid, _ := strconv.ParseInt(rec.Get("User ID"), 10, 64)
		entries = append(entries, models.AuditLogEntry{
			Timestamp: ts,
			UserID:    uid,
			Username:  rec.Get("Username"),
			Action:    models.AuditAction(rec.Get("Action")),
			SheetName: rec.Get("Sheet"),
			Detail:    rec.Get("Detail"),
			Note:      rec.Get("Note"),
		})
	}
	return entries, nil
}

// RecentConsumptions returns the newest n consumption entries, oldest first.
func (r *Recorder) RecentConsumptions(ctx context.Context, n int) ([]models.ConsumptionLogEntry, error) {
	rows, err := r.store.ListRows(ctx, ConsumptionSheet)
	if err != nil {
		return nil, fmt.Errorf("list consumption log: %w", err)
	}
	rows = tail(rows, n)
	entries := make([]models.ConsumptionLogEntry, 0, len(rows))
	for _, rec := range rows {
		ts, _ := time.Parse(timeFormat, rec.Get("Time"))
		uid, _ := strconv.ParseInt(rec.Get("User ID"), 10, 64)
		qty, _ := strconv.Atoi(rec.Get("Qty Taken"))
		entries = append(entries, models.ConsumptionLogEntry{
			Timestamp: ts,
			UserID:    uid,
			Username:  rec.Get("Username"),
			ItemType:  rec.Get("Item Type"),
			Detail:    rec.Get("Detail"),
			Quantity:  qty,
			ItemNote:  rec.Get("Item Note"),
			Reason:    rec.Get("Reason"),
		})
	}
	return entries, nil
}

func tail(rows []models.Record, n int) []models.Record {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[len(rows)-n:]
}
