package savestore

import (
	"context"
	"regexp"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgConn PostgresBackend 用到的连接池子集
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// PostgresBackend 以 (key, blob) 行保存信封
type PostgresBackend struct {
	db      pgConn
	table   string
	timeout time.Duration
	sql     squirrel.StatementBuilderType
	close   func()
}

var _ Backend = (*PostgresBackend)(nil)

// NewPostgresBackend 创建连接池并确保表存在
func NewPostgresBackend(ctx context.Context, cfg PostgresConfig) (*PostgresBackend, error) {
	if cfg.DSN == "" {
		return nil, errors.Wrap(ErrInvalidConfig, "postgres: dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "postgres: parse dsn"), ErrInvalidConfig)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: connect")
	}

	b, err := newPostgresBackend(pool, cfg.Table, cfg.QueryTimeout)
	if err != nil {
		pool.Close()
		return nil, err
	}
	b.close = pool.Close
	if err := b.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

func newPostgresBackend(db pgConn, table string, timeout time.Duration) (*PostgresBackend, error) {
	if table == "" {
		table = "save_blobs"
	}
	if !tableName.MatchString(table) {
		return nil, errors.Wrapf(ErrInvalidConfig, "postgres: invalid table name %q", table)
	}
	return &PostgresBackend{
		db:      db,
		table:   table,
		timeout: timeout,
		sql:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

func (b *PostgresBackend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

// EnsureSchema 创建存档表
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	_, err := b.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+b.table+` (
	key        TEXT PRIMARY KEY,
	blob       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return errors.Wrapf(err, "postgres: create table %s", b.table)
	}
	return nil
}

func (b *PostgresBackend) Put(ctx context.Context, key string, blob []byte) error {
	query, args, err := b.sql.Insert(b.table).
		Columns("key", "blob", "updated_at").
		Values(key, blob, squirrel.Expr("now()")).
		Suffix("ON CONFLICT (key) DO UPDATE SET blob = EXCLUDED.blob, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return err
	}

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	if _, err := b.db.Exec(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "postgres put %s", key)
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := b.sql.Select("blob").From(b.table).Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, err
	}

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	var blob []byte
	if err := b.db.QueryRow(ctx, query, args...).Scan(&blob); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "postgres key %s", key)
		}
		return nil, errors.Wrapf(err, "postgres get %s", key)
	}
	return blob, nil
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	query, args, err := b.sql.Delete(b.table).Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return err
	}

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	tag, err := b.db.Exec(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "postgres delete %s", key)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrNotFound, "postgres key %s", key)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	if b.close != nil {
		b.close()
	}
	return nil
}
