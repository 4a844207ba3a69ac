package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"botledger/internal/ledger"

	_ "modernc.org/sqlite"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS journal_entries (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	signature  TEXT NOT NULL,
	tx_id      TEXT NOT NULL,
	type       TEXT NOT NULL,
	authority  TEXT NOT NULL,
	account    TEXT NOT NULL,
	payload    TEXT,
	unix_time  INTEGER NOT NULL,
	slot       INTEGER NOT NULL,
	status     TEXT NOT NULL,
	error_code INTEGER NOT NULL DEFAULT 0,
	error_msg  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_journal_authority ON journal_entries(authority);
CREATE INDEX IF NOT EXISTS idx_journal_account ON journal_entries(account);
`

const selectEntry = `SELECT seq, signature, tx_id, type, authority, account, payload, unix_time, slot, status, error_code, error_msg FROM journal_entries`

// SQLiteJournal stores entries in a SQLite table.
type SQLiteJournal struct {
	mu sync.Mutex
	db *sql.DB
}

var _ Journal = (*SQLiteJournal)(nil)

func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) Append(ctx context.Context, e *Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO journal_entries (signature, tx_id, type, authority, account, payload, unix_time, slot, status, error_code, error_msg)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Signature.String(), e.ID, string(e.Type), e.Authority.String(), e.Account.String(),
		string(e.Payload), e.UnixTime, int64(e.Slot), string(e.Status), int64(e.ErrorCode), e.ErrorMsg,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.Seq = seq
	return nil
}

func (j *SQLiteJournal) List(ctx context.Context, authority ledger.PublicKey, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if authority.IsZero() {
		rows, err = j.db.QueryContext(ctx, selectEntry+` ORDER BY seq DESC LIMIT ?`, limit)
	} else {
		key := authority.String()
		rows, err = j.db.QueryContext(ctx, selectEntry+` WHERE authority = ? OR account = ? ORDER BY seq DESC LIMIT ?`, key, key, limit)
	}
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (j *SQLiteJournal) LoadAll(ctx context.Context) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, selectEntry+` ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e                            Entry
			sig, typ, auth, acct, status string
			payload                      sql.NullString
			slot, code                   int64
		)
		if err := rows.Scan(&e.Seq, &sig, &e.ID, &typ, &auth, &acct, &payload, &e.UnixTime, &slot, &status, &code, &e.ErrorMsg); err != nil {
			return nil, err
		}
		if err := e.Signature.UnmarshalText([]byte(sig)); err != nil {
			return nil, fmt.Errorf("entry %d signature: %w", e.Seq, err)
		}
		if err := e.Authority.UnmarshalText([]byte(auth)); err != nil {
			return nil, fmt.Errorf("entry %d authority: %w", e.Seq, err)
		}
		if err := e.Account.UnmarshalText([]byte(acct)); err != nil {
			return nil, fmt.Errorf("entry %d account: %w", e.Seq, err)
		}
		if payload.Valid && payload.String != "" {
			e.Payload = []byte(payload.String)
		}
		e.Type = ledger.InstructionType(typ)
		e.Status = Status(status)
		e.Slot = uint64(slot)
		e.ErrorCode = uint32(code)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}
