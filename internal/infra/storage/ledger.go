package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"autotrade_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// dsnPragmas make every commit durable and bound lock waits.
const dsnPragmas = "?_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Ledger is the append-only trade history of one asset, backed by its own SQLite file.
type Ledger struct {
	db   *gorm.DB
	path string
	mu   sync.Mutex // serializes appends
}

// OpenLedger opens (or creates) the ledger at path.
func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path+dsnPragmas), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to %s: %v", domain.ErrLedgerUnreadable, path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access ledger pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.TradeRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: failed to migrate %s: %v", domain.ErrLedgerUnreadable, path, err)
	}

	return &Ledger{db: db, path: path}, nil
}

// Path returns the database file backing the ledger.
func (l *Ledger) Path() string {
	return l.path
}

// Append inserts record and fills its ID. The row is committed before return.
func (l *Ledger) Append(ctx context.Context, record *domain.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := l.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to append trade record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. An empty ledger is an
// empty slice; an unreadable one is ErrLedgerUnreadable.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	if limit <= 0 {
		return []domain.TradeRecord{}, nil
	}

	rows := make([]domain.TradeRecord, 0, limit)
	err := l.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnreadable, err)
	}
	return rows, nil
}

// Latest returns the newest record, or nil if the ledger is empty.
func (l *Ledger) Latest(ctx context.Context) (*domain.TradeRecord, error) {
	var rec domain.TradeRecord
	err := l.db.WithContext(ctx).Order("id desc").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnreadable, err)
	}
	return &rec, nil
}

// Count returns the number of records.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.WithContext(ctx).Model(&domain.TradeRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrLedgerUnreadable, err)
	}
	return n, nil
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
