package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/monito/backend/internal/domain"
)

// SQLiteStore implements domain.CatalogStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection: SQLite has a single writer and pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS products (
	id             TEXT PRIMARY KEY,
	canonical_name TEXT NOT NULL,
	canonical_unit TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	UNIQUE (canonical_name, canonical_unit)
);

CREATE TABLE IF NOT EXISTS aliases (
	id         TEXT PRIMARY KEY,
	alias_text TEXT NOT NULL,
	language   TEXT NOT NULL DEFAULT '',
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	created_at TEXT NOT NULL,
	UNIQUE (alias_text, language)
);

CREATE TABLE IF NOT EXISTS price_observations (
	id               TEXT PRIMARY KEY,
	supplier_id      TEXT NOT NULL,
	product_id       TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	amount           TEXT NOT NULL,
	unit             TEXT NOT NULL,
	quantity         TEXT NOT NULL,
	valid_from       TEXT NOT NULL,
	valid_to         TEXT,
	source_upload_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_aliases_product_id ON aliases(product_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_prices_open ON price_observations(supplier_id, product_id) WHERE valid_to IS NULL;
CREATE INDEX IF NOT EXISTS idx_prices_product_open ON price_observations(product_id) WHERE valid_to IS NULL;
CREATE INDEX IF NOT EXISTS idx_prices_history ON price_observations(supplier_id, product_id, valid_from);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Products ---

func (s *SQLiteStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, canonical_name, canonical_unit, category, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.CanonicalName, p.CanonicalUnit, p.Category, formatTime(p.CreatedAt),
	)
	if isSQLiteUnique(err) {
		return eris.Wrapf(domain.ErrProductExists, "%s per %s", p.CanonicalName, p.CanonicalUnit)
	}
	return eris.Wrap(err, "sqlite: insert product")
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, canonical_name, canonical_unit, category, created_at FROM products WHERE id = ?`, id,
	)
	p, err := scanSQLiteProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(domain.ErrProductNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get product %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, canonical_name, canonical_unit, category, created_at FROM products ORDER BY canonical_name, canonical_unit`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list products")
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanSQLiteProduct(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product")
		}
		products = append(products, *p)
	}
	return products, eris.Wrap(rows.Err(), "sqlite: iterate products")
}

func scanSQLiteProduct(row scannable) (*domain.Product, error) {
	var p domain.Product
	var createdAt string
	if err := row.Scan(&p.ID, &p.CanonicalName, &p.CanonicalUnit, &p.Category, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = t
	return &p, nil
}

// --- Aliases ---

func (s *SQLiteStore) CreateAlias(ctx context.Context, a *domain.Alias) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO aliases (id, alias_text, language, product_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.AliasText, a.Language, a.ProductID, formatTime(a.CreatedAt),
	)
	switch {
	case isSQLiteUnique(err):
		return eris.Wrapf(domain.ErrAliasExists, "%q (%s)", a.AliasText, a.Language)
	case isSQLiteForeignKey(err):
		return eris.Wrapf(domain.ErrProductNotFound, "id %s", a.ProductID)
	}
	return eris.Wrap(err, "sqlite: insert alias")
}

const sqliteAliasColumns = `id, alias_text, language, product_id, created_at`

func (s *SQLiteStore) FindAliases(ctx context.Context, aliasText string) ([]domain.Alias, error) {
	return s.queryAliases(ctx,
		`SELECT `+sqliteAliasColumns+` FROM aliases WHERE alias_text = ? ORDER BY language, id`, aliasText)
}

func (s *SQLiteStore) ListAliases(ctx context.Context, productID string) ([]domain.Alias, error) {
	return s.queryAliases(ctx,
		`SELECT `+sqliteAliasColumns+` FROM aliases WHERE product_id = ? ORDER BY alias_text, language`, productID)
}

func (s *SQLiteStore) GetAlias(ctx context.Context, id string) (*domain.Alias, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteAliasColumns+` FROM aliases WHERE id = ?`, id)
	a, err := scanSQLiteAlias(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(domain.ErrAliasNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get alias %s", id)
	}
	return a, nil
}

func (s *SQLiteStore) DeleteAlias(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM aliases WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete alias %s", id)
	}
	return checkRowsAffected(res, domain.ErrAliasNotFound, id)
}

func (s *SQLiteStore) queryAliases(ctx context.Context, query string, arg string) ([]domain.Alias, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query aliases")
	}
	defer rows.Close()

	var aliases []domain.Alias
	for rows.Next() {
		a, err := scanSQLiteAlias(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan alias")
		}
		aliases = append(aliases, *a)
	}
	return aliases, eris.Wrap(rows.Err(), "sqlite: iterate aliases")
}

func scanSQLiteAlias(row scannable) (*domain.Alias, error) {
	var a domain.Alias
	var createdAt string
	if err := row.Scan(&a.ID, &a.AliasText, &a.Language, &a.ProductID, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = t
	return &a, nil
}

// --- Prices ---

// RecordPrice closes the open observation for the pair and opens obs in one
// transaction. The close only applies while valid_to is still unset.
func (s *SQLiteStore) RecordPrice(ctx context.Context, obs *domain.PriceObservation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin record price")
	}
	defer tx.Rollback() //nolint:errcheck

	validFrom := formatTime(obs.ValidFrom)
	res, err := tx.ExecContext(ctx,
		`UPDATE price_observations SET valid_to = ?
		 WHERE supplier_id = ? AND product_id = ? AND valid_to IS NULL AND valid_from <= ?`,
		validFrom, obs.SupplierID, obs.ProductID, validFrom,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: close open price")
	}
	closed, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if closed == 0 {
		var openFrom string
		err := tx.QueryRowContext(ctx,
			`SELECT valid_from FROM price_observations WHERE supplier_id = ? AND product_id = ? AND valid_to IS NULL`,
			obs.SupplierID, obs.ProductID,
		).Scan(&openFrom)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return eris.Wrap(err, "sqlite: read open price")
		case openFrom > validFrom:
			return eris.Wrapf(domain.ErrStalePrice, "%s/%s open since %s", obs.SupplierID, obs.ProductID, openFrom)
		default:
			return eris.Wrapf(domain.ErrConcurrentUpdate, "%s/%s", obs.SupplierID, obs.ProductID)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO price_observations (id, supplier_id, product_id, amount, unit, quantity, valid_from, valid_to, source_upload_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
		obs.ID, obs.SupplierID, obs.ProductID, obs.Amount.String(), obs.Unit, obs.Quantity.String(),
		validFrom, obs.SourceUploadID,
	)
	switch {
	case isSQLiteUnique(err):
		return eris.Wrapf(domain.ErrConcurrentUpdate, "%s/%s", obs.SupplierID, obs.ProductID)
	case isSQLiteForeignKey(err):
		return eris.Wrapf(domain.ErrProductNotFound, "id %s", obs.ProductID)
	case err != nil:
		return eris.Wrap(err, "sqlite: insert price")
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit record price")
}

const sqlitePriceColumns = `id, supplier_id, product_id, amount, unit, quantity, valid_from, valid_to, source_upload_id`

func (s *SQLiteStore) ActivePrices(ctx context.Context, productID string) ([]domain.PriceObservation, error) {
	return s.queryPrices(ctx,
		`SELECT `+sqlitePriceColumns+` FROM price_observations
		 WHERE product_id = ? AND valid_to IS NULL ORDER BY supplier_id`, productID)
}

func (s *SQLiteStore) PriceHistory(ctx context.Context, supplierID, productID string) ([]domain.PriceObservation, error) {
	return s.queryPrices(ctx,
		`SELECT `+sqlitePriceColumns+` FROM price_observations
		 WHERE supplier_id = ? AND product_id = ? ORDER BY valid_from, valid_to IS NULL, valid_to`, supplierID, productID)
}

func (s *SQLiteStore) queryPrices(ctx context.Context, query string, args ...any) ([]domain.PriceObservation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query prices")
	}
	defer rows.Close()

	var prices []domain.PriceObservation
	for rows.Next() {
		p, err := scanSQLitePrice(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan price")
		}
		prices = append(prices, *p)
	}
	return prices, eris.Wrap(rows.Err(), "sqlite: iterate prices")
}

func scanSQLitePrice(row scannable) (*domain.PriceObservation, error) {
	var p domain.PriceObservation
	var amount, quantity, validFrom string
	var validTo sql.NullString
	if err := row.Scan(&p.ID, &p.SupplierID, &p.ProductID, &amount, &p.Unit, &quantity,
		&validFrom, &validTo, &p.SourceUploadID); err != nil {
		return nil, err
	}

	var err error
	if p.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	if p.Quantity, err = parseDecimal(quantity); err != nil {
		return nil, err
	}
	if p.ValidFrom, err = parseTime(validFrom); err != nil {
		return nil, err
	}
	if validTo.Valid {
		t, err := parseTime(validTo.String)
		if err != nil {
			return nil, err
		}
		p.ValidTo = &t
	}
	return &p, nil
}
