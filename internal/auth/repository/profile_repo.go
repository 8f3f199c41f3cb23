package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

// roleTables maps each role to the table holding its profiles.
var roleTables = map[domain.Role]string{
	domain.RoleCustomer:   "customers",
	domain.RoleSupplier:   "suppliers",
	domain.RoleAdmin:      "admins",
	domain.RoleSuperAdmin: "super_admins",
}

// lookupOrder is the order in which role tables are searched for a user id
var lookupOrder = []domain.Role{domain.RoleCustomer, domain.RoleSupplier, domain.RoleAdmin, domain.RoleSuperAdmin}

// TableForRole returns the profile table for role.
func TableForRole(role domain.Role) (string, error) {
	table, ok := roleTables[role]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}
	return table, nil
}

const profileColumns = `user_id, email, account_type, is_verified, avatar_url, first_name, last_name,
	       phone, business_name, company_name, tax_id, created_at, updated_at`

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID retrieves a profile from whichever role table holds userID
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := ""
	for i, role := range lookupOrder {
		if i > 0 {
			query += "\nUNION ALL\n"
		}
		query += fmt.Sprintf("SELECT %s, '%s' AS role FROM %s WHERE user_id = $1", profileColumns, role, roleTables[role])
	}
	query += "\nLIMIT 1"

	return scanProfile(r.db.QueryRowContext(ctx, query, userID))
}

// Create inserts the profile row for a freshly created account
func (r *ProfileRepository) Create(ctx context.Context, user *domain.User, fields domain.ProfileFields) (*domain.Profile, error) {
	if fields.Role == "" {
		fields.Role = domain.RoleCustomer
	}
	table, err := TableForRole(fields.Role)
	if err != nil {
		return nil, err
	}
	if fields.AccountType == "" {
		fields.AccountType = domain.AccountIndividual
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, email, account_type, is_verified, first_name, last_name,
		                phone, business_name, company_name, tax_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s, '%s' AS role
	`, table, profileColumns, fields.Role)

	return scanProfile(r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		fields.AccountType,
		user.EmailConfirmed,
		fields.FirstName,
		fields.LastName,
		fields.Phone,
		fields.BusinessName,
		fields.CompanyName,
		fields.TaxID,
	))
}

// Update applies patch and returns the stored row
func (r *ProfileRepository) Update(ctx context.Context, role domain.Role, userID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	table, err := TableForRole(role)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET account_type = COALESCE($2, account_type),
		    first_name = COALESCE($3, first_name),
		    last_name = COALESCE($4, last_name),
		    phone = COALESCE($5, phone),
		    business_name = COALESCE($6, business_name),
		    company_name = COALESCE($7, company_name),
		    tax_id = COALESCE($8, tax_id),
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING %s, '%s' AS role
	`, table, profileColumns, role)

	return scanProfile(r.db.QueryRowContext(ctx, query,
		userID,
		patch.AccountType,
		patch.FirstName,
		patch.LastName,
		patch.Phone,
		patch.BusinessName,
		patch.CompanyName,
		patch.TaxID,
	))
}

// SetAvatarURL stores the uploaded avatar location
func (r *ProfileRepository) SetAvatarURL(ctx context.Context, role domain.Role, userID, url string) error {
	table, err := TableForRole(role)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET avatar_url = $2, updated_at = NOW() WHERE user_id = $1`, table)
	return r.execOne(ctx, query, userID, url)
}

// MarkVerified flips the verification flag in the role table
func (r *ProfileRepository) MarkVerified(ctx context.Context, role domain.Role, userID string) error {
	table, err := TableForRole(role)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET is_verified = TRUE, updated_at = NOW() WHERE user_id = $1`, table)
	return r.execOne(ctx, query, userID)
}

func (r *ProfileRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrProfileNotFound
	}

	return nil
}

func scanProfile(row *sql.Row) (*domain.Profile, error) {
	var p domain.Profile
	var role string
	var avatarURL, firstName, lastName, phone, businessName, companyName, taxID sql.NullString

	err := row.Scan(
		&p.UserID,
		&p.Email,
		&p.AccountType,
		&p.IsVerified,
		&avatarURL,
		&firstName,
		&lastName,
		&phone,
		&businessName,
		&companyName,
		&taxID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&role,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Role = domain.Role(role)
	p.AvatarURL = nullable(avatarURL)
	p.FirstName = nullable(firstName)
	p.LastName = nullable(lastName)
	p.Phone = nullable(phone)
	p.BusinessName = nullable(businessName)
	p.CompanyName = nullable(companyName)
	p.TaxID = nullable(taxID)

	return &p, nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
