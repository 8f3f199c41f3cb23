package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func profileTable(name string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			user_id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			account_type TEXT NOT NULL DEFAULT 'individual',
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			avatar_url TEXT,
			first_name TEXT,
			last_name TEXT,
			phone TEXT,
			business_name TEXT,
			company_name TEXT,
			tax_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`, name)
}

// Migrate creates the currency and profile tables and seeds the default
// catalog. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		profileTable("customers"),
		profileTable("suppliers"),
		profileTable("admins"),
		profileTable("super_admins"),
		`CREATE TABLE IF NOT EXISTS currencies (
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			symbol TEXT NOT NULL,
			is_base_currency BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			decimal_places INT NOT NULL DEFAULT 2
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS currencies_single_base_idx ON currencies (is_base_currency) WHERE is_base_currency;`,
		`CREATE TABLE IF NOT EXISTS exchange_rates (
			id BIGSERIAL PRIMARY KEY,
			from_currency TEXT NOT NULL REFERENCES currencies(code),
			to_currency TEXT NOT NULL REFERENCES currencies(code),
			rate NUMERIC(20,8) NOT NULL CHECK (rate > 0),
			markup_percentage NUMERIC(6,3) NOT NULL DEFAULT 0 CHECK (markup_percentage >= 0),
			effective_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expiry_date TIMESTAMPTZ,
			source TEXT NOT NULL DEFAULT 'system',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			UNIQUE (from_currency, to_currency)
		);`,
		`CREATE TABLE IF NOT EXISTS user_currency_preferences (
			user_id TEXT PRIMARY KEY,
			preferred_currency TEXT NOT NULL REFERENCES currencies(code),
			detected_country TEXT,
			detected_currency TEXT,
			ip_address TEXT,
			detected_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS currency_conversion_logs (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT,
			session_id TEXT,
			from_currency TEXT NOT NULL,
			to_currency TEXT NOT NULL,
			original_amount NUMERIC(24,4) NOT NULL,
			converted_amount NUMERIC(24,4) NOT NULL,
			exchange_rate NUMERIC(20,8) NOT NULL,
			markup_percentage NUMERIC(6,3) NOT NULL DEFAULT 0,
			ip_address TEXT,
			user_agent TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (user_id IS NOT NULL OR session_id IS NOT NULL)
		);`,
		`CREATE INDEX IF NOT EXISTS currency_conversion_logs_created_idx ON currency_conversion_logs (created_at);`,
		`INSERT INTO currencies (code, name, symbol, is_base_currency, decimal_places)
		SELECT * FROM (VALUES
			('NGN', 'Nigerian Naira', '₦', TRUE, 2),
			('USD', 'US Dollar', '$', FALSE, 2),
			('EUR', 'Euro', '€', FALSE, 2),
			('GBP', 'British Pound', '£', FALSE, 2)
		) AS seed (code, name, symbol, is_base_currency, decimal_places)
		WHERE NOT EXISTS (SELECT 1 FROM currencies);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}
