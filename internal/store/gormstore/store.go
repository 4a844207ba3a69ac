package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"botledger/internal/ledger"
	"botledger/internal/logger"
	"botledger/internal/store"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore persists accounts in SQLite through gorm. Each unit of work is
// one database transaction.
type GormStore struct {
	db        *gorm.DB
	programID ledger.PublicKey
}

var _ store.AccountStore = (*GormStore)(nil)

// NewGormStore opens (or creates) the database at path. programID marks
// which accounts get a decoded bot view.
func NewGormStore(path string, programID ledger.PublicKey) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewGormStoreFromDB(db, programID)
}

func NewGormStoreFromDB(db *gorm.DB, programID ledger.PublicKey) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	if err := db.AutoMigrate(&accountModel{}, &processedSignatureModel{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// single writer; one spare connection for HTTP reads
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &GormStore{db: db, programID: programID}, nil
}

func (s *GormStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormUnitOfWork{tx: tx, programID: s.programID}, nil
}

func (s *GormStore) Account(ctx context.Context, addr ledger.PublicKey) (*store.Account, error) {
	return loadAccount(s.db.WithContext(ctx), addr)
}

// BotViews returns decoded bot records for inspection, newest first.
func (s *GormStore) BotViews(ctx context.Context, limit int) ([]ledger.BotView, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []accountModel
	err := s.db.WithContext(ctx).
		Where("owner = ? AND authority <> ''", s.programID.String()).
		Order("updated_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ledger.BotView, 0, len(rows))
	for _, row := range rows {
		var v ledger.BotView
		if err := json.Unmarshal(row.ViewJSON, &v); err != nil {
			logger.Warnf("gorm store: bad view for %s: %v", row.Address, err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func loadAccount(db *gorm.DB, addr ledger.PublicKey) (*store.Account, error) {
	var row accountModel
	err := db.Where("address = ?", addr.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	owner, err := ledger.PublicKeyFromBase58(row.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: owner of %s: %v", ledger.ErrInvalidAccountData, row.Address, err)
	}
	return &store.Account{
		Address:  addr,
		Owner:    owner,
		Lamports: uint64(row.Lamports),
		Data:     row.Data,
	}, nil
}

type gormUnitOfWork struct {
	tx        *gorm.DB
	programID ledger.PublicKey
}

func (u *gormUnitOfWork) Get(ctx context.Context, addr ledger.PublicKey) (*store.Account, error) {
	return loadAccount(u.tx.WithContext(ctx), addr)
}

func (u *gormUnitOfWork) Put(ctx context.Context, acct *store.Account) error {
	row := accountModel{
		Address:       acct.Address.String(),
		Owner:         acct.Owner.String(),
		Lamports:      int64(acct.Lamports),
		Data:          acct.Data,
		UpdatedAtUnix: time.Now().Unix(),
	}
	if acct.Owner == u.programID && len(acct.Data) > 0 {
		if rec, err := ledger.DecodeBotRecord(acct.Data); err == nil {
			view, err := json.Marshal(ledger.NewBotView(acct.Address, rec))
			if err != nil {
				return err
			}
			row.Authority = rec.Authority.String()
			row.ViewJSON = datatypes.JSON(view)
		}
	}
	return u.tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		UpdateAll: true,
	}).Create(&row).Error
}

func (u *gormUnitOfWork) MarkProcessed(ctx context.Context, sig ledger.Signature) error {
	key := sig.String()
	var n int64
	if err := u.tx.WithContext(ctx).Model(&processedSignatureModel{}).Where("signature = ?", key).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ledger.ErrDuplicateTransaction
	}
	return u.tx.WithContext(ctx).Create(&processedSignatureModel{
		Signature:     key,
		CreatedAtUnix: time.Now().Unix(),
	}).Error
}

func (u *gormUnitOfWork) Commit() error {
	return u.tx.Commit().Error
}

func (u *gormUnitOfWork) Rollback() error {
	return u.tx.Rollback().Error
}
