package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/monito/backend/internal/domain"
)

// pgPool is the subset of *pgxpool.Pool the store uses; pgxmock satisfies it.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements domain.CatalogStore using pgxpool.
type PostgresStore struct {
	pool    pgPool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `mapstructure:"max_conns"`
	MinConns int32 `mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	id             TEXT PRIMARY KEY,
	canonical_name TEXT NOT NULL,
	canonical_unit TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (canonical_name, canonical_unit)
);

CREATE TABLE IF NOT EXISTS aliases (
	id         TEXT PRIMARY KEY,
	alias_text TEXT NOT NULL,
	language   TEXT NOT NULL DEFAULT '',
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (alias_text, language)
);

CREATE TABLE IF NOT EXISTS price_observations (
	id               TEXT PRIMARY KEY,
	supplier_id      TEXT NOT NULL,
	product_id       TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	amount           NUMERIC NOT NULL CHECK (amount > 0),
	unit             TEXT NOT NULL,
	quantity         NUMERIC NOT NULL CHECK (quantity > 0),
	valid_from       TIMESTAMPTZ NOT NULL,
	valid_to         TIMESTAMPTZ,
	source_upload_id TEXT NOT NULL DEFAULT '',
	CHECK (valid_to IS NULL OR valid_to >= valid_from)
);

CREATE INDEX IF NOT EXISTS idx_aliases_product_id ON aliases(product_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_prices_open ON price_observations(supplier_id, product_id) WHERE valid_to IS NULL;
CREATE INDEX IF NOT EXISTS idx_prices_product_open ON price_observations(product_id) WHERE valid_to IS NULL;
CREATE INDEX IF NOT EXISTS idx_prices_history ON price_observations(supplier_id, product_id, valid_from);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// --- Products ---

func (s *PostgresStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO products (id, canonical_name, canonical_unit, category, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.CanonicalName, p.CanonicalUnit, p.Category, p.CreatedAt.UTC(),
	)
	if pgErrorCode(err) == pgUniqueViolation {
		return eris.Wrapf(domain.ErrProductExists, "%s per %s", p.CanonicalName, p.CanonicalUnit)
	}
	return eris.Wrap(err, "postgres: insert product")
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.pool.QueryRow(ctx,
		`SELECT id, canonical_name, canonical_unit, category, created_at FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.CanonicalName, &p.CanonicalUnit, &p.Category, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(domain.ErrProductNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get product %s", id)
	}
	return &p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, canonical_name, canonical_unit, category, created_at FROM products ORDER BY canonical_name, canonical_unit`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list products")
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CanonicalName, &p.CanonicalUnit, &p.Category, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		products = append(products, p)
	}
	return products, eris.Wrap(rows.Err(), "postgres: iterate products")
}

// --- Aliases ---

func (s *PostgresStore) CreateAlias(ctx context.Context, a *domain.Alias) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO aliases (id, alias_text, language, product_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.AliasText, a.Language, a.ProductID, a.CreatedAt.UTC(),
	)
	switch pgErrorCode(err) {
	case pgUniqueViolation:
		return eris.Wrapf(domain.ErrAliasExists, "%q (%s)", a.AliasText, a.Language)
	case pgForeignKeyViolation:
		return eris.Wrapf(domain.ErrProductNotFound, "id %s", a.ProductID)
	}
	return eris.Wrap(err, "postgres: insert alias")
}

const pgAliasColumns = `id, alias_text, language, product_id, created_at`

func (s *PostgresStore) FindAliases(ctx context.Context, aliasText string) ([]domain.Alias, error) {
	return s.queryAliases(ctx,
		`SELECT `+pgAliasColumns+` FROM aliases WHERE alias_text = $1 ORDER BY language, id`, aliasText)
}

func (s *PostgresStore) ListAliases(ctx context.Context, productID string) ([]domain.Alias, error) {
	return s.queryAliases(ctx,
		`SELECT `+pgAliasColumns+` FROM aliases WHERE product_id = $1 ORDER BY alias_text, language`, productID)
}

func (s *PostgresStore) GetAlias(ctx context.Context, id string) (*domain.Alias, error) {
	var a domain.Alias
	err := s.pool.QueryRow(ctx, `SELECT `+pgAliasColumns+` FROM aliases WHERE id = $1`, id).
		Scan(&a.ID, &a.AliasText, &a.Language, &a.ProductID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(domain.ErrAliasNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get alias %s", id)
	}
	return &a, nil
}

func (s *PostgresStore) DeleteAlias(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM aliases WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete alias %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(domain.ErrAliasNotFound, "id %s", id)
	}
	return nil
}

func (s *PostgresStore) queryAliases(ctx context.Context, query string, arg string) ([]domain.Alias, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query aliases")
	}
	defer rows.Close()

	var aliases []domain.Alias
	for rows.Next() {
		var a domain.Alias
		if err := rows.Scan(&a.ID, &a.AliasText, &a.Language, &a.ProductID, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan alias")
		}
		aliases = append(aliases, a)
	}
	return aliases, eris.Wrap(rows.Err(), "postgres: iterate aliases")
}

// --- Prices ---

// RecordPrice closes the open observation for the pair and opens obs in one
// transaction. The close only applies while valid_to is still unset, so two
// writers racing on the same pair cannot both keep an open row.
func (s *PostgresStore) RecordPrice(ctx context.Context, obs *domain.PriceObservation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin record price")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	validFrom := obs.ValidFrom.UTC()
	tag, err := tx.Exec(ctx,
		`UPDATE price_observations SET valid_to = $1
		 WHERE supplier_id = $2 AND product_id = $3 AND valid_to IS NULL AND valid_from <= $1`,
		validFrom, obs.SupplierID, obs.ProductID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: close open price")
	}
	if tag.RowsAffected() == 0 {
		var openFrom time.Time
		err := tx.QueryRow(ctx,
			`SELECT valid_from FROM price_observations WHERE supplier_id = $1 AND product_id = $2 AND valid_to IS NULL`,
			obs.SupplierID, obs.ProductID,
		).Scan(&openFrom)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return eris.Wrap(err, "postgres: read open price")
		case openFrom.After(validFrom):
			return eris.Wrapf(domain.ErrStalePrice, "%s/%s open since %s", obs.SupplierID, obs.ProductID, openFrom.Format(time.RFC3339))
		default:
			return eris.Wrapf(domain.ErrConcurrentUpdate, "%s/%s", obs.SupplierID, obs.ProductID)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO price_observations (id, supplier_id, product_id, amount, unit, quantity, valid_from, source_upload_id)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric, $7, $8)`,
		obs.ID, obs.SupplierID, obs.ProductID, obs.Amount.String(), obs.Unit, obs.Quantity.String(),
		validFrom, obs.SourceUploadID,
	)
	switch pgErrorCode(err) {
	case "":
		if err != nil {
			return eris.Wrap(err, "postgres: insert price")
		}
	case pgUniqueViolation:
		return eris.Wrapf(domain.ErrConcurrentUpdate, "%s/%s", obs.SupplierID, obs.ProductID)
	case pgForeignKeyViolation:
		return eris.Wrapf(domain.ErrProductNotFound, "id %s", obs.ProductID)
	default:
		return eris.Wrap(err, "postgres: insert price")
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit record price")
}

const pgPriceColumns = `id, supplier_id, product_id, amount::text, unit, quantity::text, valid_from, valid_to, source_upload_id`

func (s *PostgresStore) ActivePrices(ctx context.Context, productID string) ([]domain.PriceObservation, error) {
	return s.queryPrices(ctx,
		`SELECT `+pgPriceColumns+` FROM price_observations
		 WHERE product_id = $1 AND valid_to IS NULL ORDER BY supplier_id`, productID)
}

func (s *PostgresStore) PriceHistory(ctx context.Context, supplierID, productID string) ([]domain.PriceObservation, error) {
	return s.queryPrices(ctx,
		`SELECT `+pgPriceColumns+` FROM price_observations
		 WHERE supplier_id = $1 AND product_id = $2 ORDER BY valid_from, valid_to NULLS LAST`, supplierID, productID)
}

func (s *PostgresStore) queryPrices(ctx context.Context, query string, args ...any) ([]domain.PriceObservation, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query prices")
	}
	defer rows.Close()

	var prices []domain.PriceObservation
	for rows.Next() {
		var (
			p                domain.PriceObservation
			amount, quantity string
		)
		if err := rows.Scan(&p.ID, &p.SupplierID, &p.ProductID, &amount, &p.Unit, &quantity,
			&p.ValidFrom, &p.ValidTo, &p.SourceUploadID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan price")
		}
		if p.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if p.Quantity, err = parseDecimal(quantity); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, eris.Wrap(rows.Err(), "postgres: iterate prices")
}
