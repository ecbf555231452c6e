package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/onairos/onairos-go/pkg/api"
)

// SQLiteStore is a Store backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS credentials (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			username TEXT NOT NULL,
			email TEXT NOT NULL,
			bearer_token TEXT NOT NULL,
			token_expiry INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS connections (
			platform TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			auth_code TEXT NOT NULL,
			connected_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS secrets (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteStore) Credentials(ctx context.Context) (Credentials, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT username, email, bearer_token, token_expiry
		FROM credentials WHERE id = 1`)

	var creds Credentials
	var expiry int64
	err := row.Scan(&creds.Username, &creds.Email, &creds.BearerToken, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, err
	}
	if expiry != 0 {
		creds.TokenExpiry = time.Unix(expiry, 0)
	}
	return creds, true, nil
}

func (s *SQLiteStore) SaveCredentials(ctx context.Context, creds Credentials) error {
	var expiry int64
	if !creds.TokenExpiry.IsZero() {
		expiry = creds.TokenExpiry.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, username, email, bearer_token, token_expiry)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			email = excluded.email,
			bearer_token = excluded.bearer_token,
			token_expiry = excluded.token_expiry`,
		creds.Username, creds.Email, creds.BearerToken, expiry,
	)
	return err
}

func (s *SQLiteStore) ClearCredentials(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = 1`)
	return err
}

func (s *SQLiteStore) Connections(ctx context.Context) ([]api.PlatformConnection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, access_token, auth_code, connected_at
		FROM connections ORDER BY platform`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.PlatformConnection
	for rows.Next() {
		var conn api.PlatformConnection
		var platform string
		var connectedAt int64
		if err := rows.Scan(&platform, &conn.AccessToken, &conn.AuthCode, &connectedAt); err != nil {
			return nil, err
		}
		conn.Platform = api.Platform(platform)
		conn.ConnectedAt = time.Unix(connectedAt, 0)
		out = append(out, conn)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Connect(ctx context.Context, conn api.PlatformConnection) error {
	// Single upsert: set membership and credential storage cannot diverge.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connections (platform, access_token, auth_code, connected_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(platform) DO UPDATE SET
			access_token = excluded.access_token,
			auth_code = excluded.auth_code,
			connected_at = excluded.connected_at`,
		string(conn.Platform), conn.AccessToken, conn.AuthCode, conn.ConnectedAt.Unix(),
	)
	return err
}

func (s *SQLiteStore) Disconnect(ctx context.Context, platform api.Platform) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM connections WHERE platform = ?`, string(platform))
	return err
}

func (s *SQLiteStore) StorePIN(ctx context.Context, pin string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secrets (name, value) VALUES ('pin', ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		pin,
	)
	return err
}

func (s *SQLiteStore) LoadPIN(ctx context.Context) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM secrets WHERE name = 'pin'`)
	var pin string
	err := row.Scan(&pin)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return pin, true, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM credentials`,
		`DELETE FROM connections`,
		`DELETE FROM secrets`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
