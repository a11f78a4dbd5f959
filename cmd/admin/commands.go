package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/aoideee/kitobchi/internal/auth"
	"github.com/aoideee/kitobchi/internal/data"
	"github.com/aoideee/kitobchi/internal/validator"
)

// admin holds the global flags and how to reach the database.
type admin struct {
	dsn    string
	openDB func(dsn string) (*sql.DB, error)
}

func newRootCmd() *cobra.Command {
	a := &admin{openDB: openDB}

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Kitobchi operator commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.dsn, "db", os.Getenv("DATABASE_URL"), "PostgreSQL DSN (defaults to $DATABASE_URL)")

	root.AddCommand(
		a.migrateCmd(),
		a.seedCmd(),
		a.booksCmd(),
		a.usersCmd(),
	)
	return root
}

func openDB(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("no database: pass --db or set DATABASE_URL")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// withDB opens the database for the duration of fn.
func (a *admin) withDB(fn func(db *sql.DB) error) error {
	db, err := a.openDB(a.dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func (a *admin) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *sql.DB) error {
				applied, err := data.Migrate(cmd.Context(), db)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
					return nil
				}
				for _, name := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
				}
				return nil
			})
		},
	}
}

func (a *admin) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert or refresh the default categories and languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *sql.DB) error {
				return seed(cmd, data.NewModels(db))
			})
		},
	}
}

func seed(cmd *cobra.Command, models data.Models) error {
	ctx := cmd.Context()
	for _, c := range data.DefaultCategories {
		if err := models.Categories.Upsert(ctx, &c); err != nil {
			return fmt.Errorf("category %s: %w", c.Slug, err)
		}
	}
	for _, l := range data.DefaultLanguages {
		if err := models.Languages.Upsert(ctx, &l); err != nil {
			return fmt.Errorf("language %s: %w", l.Code, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories and %d languages\n",
		len(data.DefaultCategories), len(data.DefaultLanguages))
	return nil
}

func (a *admin) booksCmd() *cobra.Command {
	books := &cobra.Command{
		Use:   "books",
		Short: "Moderate listings",
	}

	moderate := func(use, short string, status data.Status) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <book-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || id < 1 {
					return fmt.Errorf("invalid book id %q", args[0])
				}
				return a.withDB(func(db *sql.DB) error {
					return setStatus(cmd, data.NewModels(db), id, status)
				})
			},
		}
	}

	books.AddCommand(
		moderate("approve", "Publish a listing", data.StatusApproved),
		moderate("reject", "Reject a listing", data.StatusRejected),
	)
	return books
}

func setStatus(cmd *cobra.Command, models data.Models, id int64, status data.Status) error {
	err := models.Books.SetStatus(cmd.Context(), id, status)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return fmt.Errorf("book %d not found", id)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "book %d is now %s\n", id, status)
	return nil
}

func (a *admin) usersCmd() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}

	var email, password, firstName, lastName string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account without going through registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := newUser(email, password, firstName, lastName)
			if err != nil {
				return err
			}
			return a.withDB(func(db *sql.DB) error {
				err := data.NewModels(db).Users.Insert(cmd.Context(), user)
				if err != nil {
					if errors.Is(err, data.ErrDuplicateEmail) {
						return fmt.Errorf("email %s already registered", user.Email)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %d <%s>\n", user.ID, user.Email)
				return nil
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "Email address")
	create.Flags().StringVar(&password, "password", "", "Password")
	create.Flags().StringVar(&firstName, "first-name", "", "First name")
	create.Flags().StringVar(&lastName, "last-name", "", "Last name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	users.AddCommand(create)
	return users
}

// newUser validates input with the account-creation rule and hashes the
// password.
func newUser(email, password, firstName, lastName string) (*data.User, error) {
	user := &data.User{Email: data.NormalizeEmail(email)}
	if firstName != "" {
		user.FirstName = &firstName
	}
	if lastName != "" {
		user.LastName = &lastName
	}

	v := validator.New()
	data.ValidateUserCreate(v, user.Email, password)
	data.ValidateProfile(v, user)
	if !v.Valid() {
		return nil, validationError(v.Errors)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	return user, nil
}

func validationError(errs map[string]string) error {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+errs[k])
	}
	return errors.New("invalid input: " + strings.Join(parts, "; "))
}
