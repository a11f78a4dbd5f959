package data

import (
	"context"
	"database/sql"
)

// Category and Language are small reference tables. Deleting a row nulls
// the reference on books instead of deleting them.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Language struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type CategoryModel struct {
	DB *sql.DB
}

func (m CategoryModel) Get(ctx context.Context, id int64) (*Category, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Category
	err := m.DB.QueryRowContext(ctx, `SELECT id, name, slug FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		return nil, classify(err)
	}
	return &c, nil
}

func (m CategoryModel) GetAll(ctx context.Context) ([]*Category, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// Upsert inserts the category or renames the existing one with the same slug.
func (m CategoryModel) Upsert(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (name, slug) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, c.Name, c.Slug).Scan(&c.ID)
}

type LanguageModel struct {
	DB *sql.DB
}

func (m LanguageModel) Get(ctx context.Context, id int64) (*Language, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var l Language
	err := m.DB.QueryRowContext(ctx, `SELECT id, name, code FROM languages WHERE id = $1`, id).Scan(&l.ID, &l.Name, &l.Code)
	if err != nil {
		return nil, classify(err)
	}
	return &l, nil
}

// GetAll lists languages alphabetically by name.
func (m LanguageModel) GetAll(ctx context.Context) ([]*Language, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, `SELECT id, name, code FROM languages ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	languages := []*Language{}
	for rows.Next() {
		var l Language
		if err := rows.Scan(&l.ID, &l.Name, &l.Code); err != nil {
			return nil, err
		}
		languages = append(languages, &l)
	}
	return languages, rows.Err()
}

func (m LanguageModel) Upsert(ctx context.Context, l *Language) error {
	query := `
		INSERT INTO languages (name, code) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, l.Name, l.Code).Scan(&l.ID)
}

// DefaultCategories and DefaultLanguages are loaded by the admin seed command.
var DefaultCategories = []Category{
	{Name: "Fiction", Slug: "fiction"},
	{Name: "Non-fiction", Slug: "non-fiction"},
	{Name: "Children", Slug: "children"},
	{Name: "Education", Slug: "education"},
	{Name: "Science", Slug: "science"},
	{Name: "History", Slug: "history"},
	{Name: "Religion", Slug: "religion"},
	{Name: "Business", Slug: "business"},
}

var DefaultLanguages = []Language{
	{Name: "Uzbek", Code: "uz"},
	{Name: "Russian", Code: "ru"},
	{Name: "English", Code: "en"},
	{Name: "Turkish", Code: "tr"},
	{Name: "Karakalpak", Code: "kaa"},
}
