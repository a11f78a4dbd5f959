package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aoideee/kitobchi/internal/validator"
)

// User is an account record. PasswordHash never leaves the server.
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	FirstName        *string   `json:"first_name"`
	LastName         *string   `json:"last_name"`
	Phone            *string   `json:"phone"`
	TelegramUsername *string   `json:"telegram_username"`
	AvatarURL        *string   `json:"avatar_url"`
	Bio              *string   `json:"bio"`
	CreatedAt        time.Time `json:"created_at"`
}

// AnonymousUser represents a request without a valid access token.
var AnonymousUser = &User{}

// IsAnonymous reports whether u is the AnonymousUser sentinel.
func (u *User) IsAnonymous() bool {
	return u == AnonymousUser
}

// NormalizeEmail trims and lowercases an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(v *validator.Validator, email string) {
	v.Check(email != "", "email", "must be provided")
	v.Check(len(email) <= 255, "email", "must not be more than 255 bytes long")
	v.Check(validator.Matches(email, validator.EmailRX), "email", "must be a valid email address")
}

// ValidateRegistrationPassword applies the sign-up rule: 8 to 64 characters.
func ValidateRegistrationPassword(v *validator.Validator, password string) {
	v.Check(password != "", "password", "must be provided")
	v.Check(validator.MinChars(password, 8), "password", "must be at least 8 characters long")
	v.Check(validator.MaxChars(password, 64), "password", "must not be more than 64 characters long")
}

// ValidateUserCreate is the generic account-creation rule used outside
// self-registration. It only requires 6 characters; see DESIGN.md before
// aligning it with ValidateRegistrationPassword.
func ValidateUserCreate(v *validator.Validator, email, password string) {
	ValidateEmail(v, email)
	v.Check(password != "", "password", "must be provided")
	v.Check(validator.MinChars(password, 6), "password", "must be at least 6 characters long")
}

// RegisterInput is the sign-up request body.
type RegisterInput struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// UpdateProfileInput is the body of PUT /users/me. Every field may be
// omitted or set to null.
type UpdateProfileInput struct {
	FirstName        Optional[string] `json:"first_name"`
	LastName         Optional[string] `json:"last_name"`
	Phone            Optional[string] `json:"phone"`
	TelegramUsername Optional[string] `json:"telegram_username"`
	AvatarURL        Optional[string] `json:"avatar_url"`
	Bio              Optional[string] `json:"bio"`
}

func (in UpdateProfileInput) ApplyTo(u *User) {
	set := func(dst **string, o Optional[string]) {
		if o.Set {
			*dst = o.Value
		}
	}
	set(&u.FirstName, in.FirstName)
	set(&u.LastName, in.LastName)
	set(&u.Phone, in.Phone)
	set(&u.TelegramUsername, in.TelegramUsername)
	set(&u.AvatarURL, in.AvatarURL)
	set(&u.Bio, in.Bio)
}

// ValidateProfile enforces the column widths of the users table.
func ValidateProfile(v *validator.Validator, u *User) {
	check := func(value *string, key string, n int, message string) {
		if value != nil {
			v.Check(validator.MaxChars(*value, n), key, message)
		}
	}
	check(u.FirstName, "first_name", 100, "must not be more than 100 characters long")
	check(u.LastName, "last_name", 100, "must not be more than 100 characters long")
	check(u.Phone, "phone", 20, "must not be more than 20 characters long")
	check(u.TelegramUsername, "telegram_username", 100, "must not be more than 100 characters long")
	check(u.AvatarURL, "avatar_url", 500, "must not be more than 500 characters long")
	if u.AvatarURL != nil && *u.AvatarURL != "" {
		v.Check(validator.AbsoluteURL(*u.AvatarURL), "avatar_url", "must be an absolute http or https URL")
	}
}

// UserModel wraps the connection pool for the users table.
type UserModel struct {
	DB *sql.DB
}

const userColumns = `id, email, password, first_name, last_name, phone, telegram_username, avatar_url, bio, created_at`

func scanUser(row interface{ Scan(...any) error }, u *User) error {
	return row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Phone,
		&u.TelegramUsername,
		&u.AvatarURL,
		&u.Bio,
		&u.CreatedAt,
	)
}

// Insert creates the user and writes the generated id and created_at back.
// Returns ErrDuplicateEmail when the address is already registered.
func (m UserModel) Insert(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (email, password, first_name, last_name, phone, telegram_username, avatar_url, bio)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Phone,
		u.TelegramUsername,
		u.AvatarURL,
		u.Bio,
	).Scan(&u.ID, &u.CreatedAt)
	return classify(err)
}

func (m UserModel) Get(ctx context.Context, id int64) (*User, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}
	return m.getBy(ctx, "id", id)
}

func (m UserModel) GetByEmail(ctx context.Context, email string) (*User, error) {
	return m.getBy(ctx, "email", email)
}

func (m UserModel) getBy(ctx context.Context, column string, value any) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u User
	err := scanUser(m.DB.QueryRowContext(ctx, query, value), &u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Update saves the profile fields. Email and password are not changed here.
func (m UserModel) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, phone = $3, telegram_username = $4, avatar_url = $5, bio = $6
		WHERE id = $7`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, query,
		u.FirstName,
		u.LastName,
		u.Phone,
		u.TelegramUsername,
		u.AvatarURL,
		u.Bio,
		u.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}
