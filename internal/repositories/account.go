package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/udj/internal/models"
	"github.com/desertthunder/udj/internal/shared"
	"golang.org/x/oauth2"
)

const accountColumns = `id, name, account_type, password, auth_token, token_type, token_expiry, created_at, updated_at`

var _ models.Repository[*models.Account] = (*AccountRepository)(nil)

// AccountRepository implements [models.Repository] for [models.Account] persistence.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new [AccountRepository] with the given database connection
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account with a generated ID
func (r *AccountRepository) Create(account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()

	_, err := r.db.Exec(`
		INSERT INTO accounts (id, name, account_type, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
	`, id, account.Name(), account.AccountType(), account.Password(), account.CreatedAt(), account.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	account.SetID(id)
	return nil
}

// Get retrieves an account by ID
func (r *AccountRepository) Get(id string) (*models.Account, error) {
	return r.scanOne(r.db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id), id)
}

// GetByName retrieves an account by its login name
func (r *AccountRepository) GetByName(ctx context.Context, name string) (*models.Account, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE name = ?`, name), name)
}

// Update stores the account's password and cached token.
func (r *AccountRepository) Update(account *models.Account) error {
	return r.UpdateContext(context.Background(), account)
}

// UpdateContext is [AccountRepository.Update] bound to ctx.
func (r *AccountRepository) UpdateContext(ctx context.Context, account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()

	var (
		token     sql.NullString
		tokenType sql.NullString
		expiry    sql.NullTime
	)
	if t := account.Token(); t != nil {
		token = sql.NullString{String: t.AccessToken, Valid: true}
		tokenType = sql.NullString{String: account.TokenType(), Valid: account.TokenType() != ""}
		expiry = sql.NullTime{Time: t.Expiry.UTC(), Valid: !t.Expiry.IsZero()}
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET password = ?, auth_token = ?, token_type = ?, token_expiry = ?, updated_at = ?
		WHERE id = ?
	`, account.Password(), token, tokenType, expiry, now, account.ID())
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, account.ID())
	}

	account.SetUpdatedAt(now)
	return nil
}

// Delete removes an account by ID; its sync cursor goes with it.
func (r *AccountRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}
	return nil
}

// List retrieves all accounts matching the given criteria ("account_type", "name").
func (r *AccountRepository) List(criteria map[string]any) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1 = 1`
	args := []any{}

	if accountType, ok := criteria["account_type"].(string); ok && accountType != "" {
		query += " AND account_type = ?"
		args = append(args, accountType)
	}
	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}
	query += " ORDER BY name ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return accounts, nil
}

// ClearToken drops token from the named account if it is still the cached one.
// A token that was already replaced is left alone, so it reports zero rows.
func (r *AccountRepository) ClearToken(ctx context.Context, name, token string) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET auth_token = NULL, token_type = NULL, token_expiry = NULL, updated_at = ?
		WHERE name = ? AND auth_token = ?
	`, time.Now().UTC(), name, token)
	if err != nil {
		return 0, fmt.Errorf("failed to clear auth token: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

func (r *AccountRepository) scanOne(row *sql.Row, key string) (*models.Account, error) {
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, key)
	}
	return account, err
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		id          string
		name        string
		accountType string
		password    string
		token       sql.NullString
		tokenType   sql.NullString
		expiry      sql.NullTime
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(&id, &name, &accountType, &password, &token, &tokenType, &expiry, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	account := models.NewAccount(name, accountType, password)
	account.SetID(id)
	account.SetCreatedAt(createdAt)
	account.SetUpdatedAt(updatedAt)
	if token.Valid {
		t := &oauth2.Token{AccessToken: token.String}
		if expiry.Valid {
			t.Expiry = expiry.Time
		}
		account.SetToken(t)
		account.SetTokenType(tokenType.String)
	}

	return account, nil
}
