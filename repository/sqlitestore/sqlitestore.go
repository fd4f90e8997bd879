// Package sqlitestore implements the repository interfaces over a
// pure-Go SQLite database (modernc.org/sqlite, no CGO), grounded on
// the pack's sqlite.DB pattern: WAL mode, a single writer connection,
// idempotent CREATE TABLE IF NOT EXISTS migrations run at Open.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sajuworks/saju-gateway/repository"
)

// Store wraps a SQLite connection implementing every repository interface.
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at path, in WAL mode with
// a busy timeout, and runs schema migrations.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close shuts down the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			platform TEXT NOT NULL,
			user_id  TEXT NOT NULL,
			year INTEGER, month INTEGER, day INTEGER, hour INTEGER, minute INTEGER,
			gender TEXT, calendar TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			last_active INTEGER NOT NULL,
			PRIMARY KEY (platform, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_user ON conversation_turns(platform, user_id, id)`,
		`CREATE TABLE IF NOT EXISTS interests (
			platform TEXT NOT NULL,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			ask_count INTEGER NOT NULL DEFAULT 0,
			weighted_count REAL NOT NULL DEFAULT 0,
			last_asked INTEGER NOT NULL,
			PRIMARY KEY (platform, user_id, category)
		)`,
		`CREATE TABLE IF NOT EXISTS push_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform TEXT NOT NULL,
			user_id TEXT NOT NULL,
			category TEXT,
			status TEXT NOT NULL,
			message_text TEXT,
			is_opened INTEGER NOT NULL DEFAULT 0,
			converted_to_premium INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			sent_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_usage (
			user_id TEXT NOT NULL,
			day TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, day)
		)`,
		`CREATE TABLE IF NOT EXISTS billing (
			platform TEXT NOT NULL,
			user_id TEXT NOT NULL,
			premium_until INTEGER,
			has_subscription INTEGER NOT NULL DEFAULT 0,
			credits INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (platform, user_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlitestore: migration failed: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, platform, userID string) (repository.Profile, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT platform,user_id,year,month,day,hour,minute,gender,calendar,is_active,created_at,last_active
		FROM profiles WHERE platform=? AND user_id=?`, platform, userID)

	var p repository.Profile
	var isActive int
	var createdAt, lastActive int64
	err := row.Scan(&p.Platform, &p.UserID, &p.Year, &p.Month, &p.Day, &p.Hour, &p.Minute, &p.Gender, &p.Calendar, &isActive, &createdAt, &lastActive)
	if err == sql.ErrNoRows {
		return repository.Profile{}, false, nil
	}
	if err != nil {
		return repository.Profile{}, false, err
	}
	p.IsActive = isActive != 0
	p.CreatedAt = time.Unix(createdAt, 0)
	p.LastActive = time.Unix(lastActive, 0)
	return p, true, nil
}

func (s *Store) Upsert(ctx context.Context, p repository.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.LastActive.IsZero() {
		p.LastActive = time.Now()
	}
	isActive := 0
	if p.IsActive {
		isActive = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO profiles
		(platform,user_id,year,month,day,hour,minute,gender,calendar,is_active,created_at,last_active)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(platform,user_id) DO UPDATE SET
			year=excluded.year, month=excluded.month, day=excluded.day,
			hour=excluded.hour, minute=excluded.minute, gender=excluded.gender,
			calendar=excluded.calendar, is_active=excluded.is_active, last_active=excluded.last_active`,
		p.Platform, p.UserID, p.Year, p.Month, p.Day, p.Hour, p.Minute, p.Gender, p.Calendar,
		isActive, p.CreatedAt.Unix(), p.LastActive.Unix())
	return err
}

func (s *Store) ActiveSince(ctx context.Context, since time.Time) ([]repository.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT platform,user_id,year,month,day,hour,minute,gender,calendar,is_active,created_at,last_active
		FROM profiles WHERE is_active=1 AND last_active >= ?`, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Profile
	for rows.Next() {
		var p repository.Profile
		var isActive int
		var createdAt, lastActive int64
		if err := rows.Scan(&p.Platform, &p.UserID, &p.Year, &p.Month, &p.Day, &p.Hour, &p.Minute, &p.Gender, &p.Calendar, &isActive, &createdAt, &lastActive); err != nil {
			return nil, err
		}
		p.IsActive = isActive != 0
		p.CreatedAt = time.Unix(createdAt, 0)
		p.LastActive = time.Unix(lastActive, 0)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Deactivate marks a profile inactive, e.g. after the platform reports
// the user blocked the bot — the push scheduler then excludes it from
// future ActiveSince results.
func (s *Store) Deactivate(ctx context.Context, platform, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE profiles SET is_active=0 WHERE platform=? AND user_id=?`, platform, userID)
	return err
}

func (s *Store) Append(ctx context.Context, t repository.ConversationTurn, maxTurns int) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO conversation_turns (platform,user_id,role,content,created_at) VALUES (?,?,?,?,?)`,
		t.Platform, t.UserID, t.Role, t.Content, t.CreatedAt.Unix()); err != nil {
		return err
	}
	if maxTurns <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversation_turns WHERE platform=? AND user_id=? AND id NOT IN (
		SELECT id FROM conversation_turns WHERE platform=? AND user_id=? ORDER BY id DESC LIMIT ?)`,
		t.Platform, t.UserID, t.Platform, t.UserID, maxTurns)
	return err
}

func (s *Store) Recent(ctx context.Context, platform, userID string, n int) ([]repository.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT platform,user_id,role,content,created_at FROM conversation_turns
		WHERE platform=? AND user_id=? ORDER BY id DESC LIMIT ?`, platform, userID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ConversationTurn
	for rows.Next() {
		var t repository.ConversationTurn
		var createdAt int64
		if err := rows.Scan(&t.Platform, &t.UserID, &t.Role, &t.Content, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, t)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func (s *Store) UpsertInterest(ctx context.Context, r repository.InterestRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO interests (platform,user_id,category,ask_count,weighted_count,last_asked)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(platform,user_id,category) DO UPDATE SET
			ask_count=excluded.ask_count, weighted_count=excluded.weighted_count, last_asked=excluded.last_asked`,
		r.Platform, r.UserID, r.Category, r.AskCount, r.WeightedCount, r.LastAsked.Unix())
	return err
}

func (s *Store) ListInterests(ctx context.Context, platform, userID string) ([]repository.InterestRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT platform,user_id,category,ask_count,weighted_count,last_asked
		FROM interests WHERE platform=? AND user_id=?`, platform, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInterests(rows)
}

func (s *Store) AllStaleInterests(ctx context.Context, before time.Time) ([]repository.InterestRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT platform,user_id,category,ask_count,weighted_count,last_asked
		FROM interests WHERE last_asked < ?`, before.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInterests(rows)
}

func scanInterests(rows *sql.Rows) ([]repository.InterestRecord, error) {
	var out []repository.InterestRecord
	for rows.Next() {
		var r repository.InterestRecord
		var lastAsked int64
		if err := rows.Scan(&r.Platform, &r.UserID, &r.Category, &r.AskCount, &r.WeightedCount, &lastAsked); err != nil {
			return nil, err
		}
		r.LastAsked = time.Unix(lastAsked, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Record(ctx context.Context, log repository.PushLog) error {
	if log.SentAt.IsZero() {
		log.SentAt = time.Now()
	}
	isOpened, converted := 0, 0
	if log.IsOpened {
		isOpened = 1
	}
	if log.ConvertedToPremium {
		converted = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO push_logs
		(platform,user_id,category,status,message_text,is_opened,converted_to_premium,error,sent_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		log.Platform, log.UserID, log.Category, string(log.Status), log.MessageText, isOpened, converted, log.Error, log.SentAt.Unix())
	return err
}

// Peek satisfies ratelimit.DailyUsageStore's read-only quota check.
func (s *Store) Peek(userID string, day string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT count FROM daily_usage WHERE user_id=? AND day=?`, userID, day).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Increment satisfies ratelimit.DailyUsageStore. SQLite's single
// writer connection makes the read-modify-write safe without an
// explicit transaction.
func (s *Store) Increment(userID string, day string) (int, error) {
	_, err := s.db.Exec(`INSERT INTO daily_usage (user_id, day, count) VALUES (?, ?, 1)
		ON CONFLICT(user_id, day) DO UPDATE SET count = count + 1`, userID, day)
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRow(`SELECT count FROM daily_usage WHERE user_id=? AND day=?`, userID, day).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) GetBilling(ctx context.Context, platform, userID string) (repository.BillingState, error) {
	row := s.db.QueryRowContext(ctx, `SELECT platform,user_id,premium_until,has_subscription,credits FROM billing WHERE platform=? AND user_id=?`,
		platform, userID)

	var b repository.BillingState
	var premiumUntil sql.NullInt64
	var hasSub int
	err := row.Scan(&b.Platform, &b.UserID, &premiumUntil, &hasSub, &b.Credits)
	if err == sql.ErrNoRows {
		return repository.BillingState{Platform: platform, UserID: userID}, nil
	}
	if err != nil {
		return repository.BillingState{}, err
	}
	if premiumUntil.Valid {
		b.PremiumUntil = time.Unix(premiumUntil.Int64, 0)
	}
	b.HasSubscription = hasSub != 0
	return b, nil
}

var (
	_ repository.ProfileStore      = (*Store)(nil)
	_ repository.ConversationStore = (*Store)(nil)
	_ repository.InterestStore     = (*Store)(nil)
	_ repository.PushLogStore      = (*Store)(nil)
	_ repository.DailyUsageStore   = (*Store)(nil)
	_ repository.BillingStore      = (*Store)(nil)
)
