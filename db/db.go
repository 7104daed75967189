package db

import (
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DatabaseFile is the name of the SQLite file created inside the explorer config directory.
const DatabaseFile = "explorer.db"

// Repository provides a centralized structure for database operations, embedding the database connection.
// It acts as a receiver for methods that implement the repository interfaces defined in the domain package.
type Repository struct {
	dbConn *sqlx.DB // dbConn is the active database connection pool.
}

// NewRepository initializes a new Repository with the given sqlx.DB database connection.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		dbConn: db,
	}
}

// Close terminates the database connection.
func (repo *Repository) Close() error {
	err := repo.dbConn.Close()
	if err != nil {
		return fmt.Errorf("closing repo : %w", err)
	}
	return nil
}

// New establishes a new connection to a SQLite database file and applies all pending migrations.
// WAL mode keeps reads from the UI from waiting on the synchronous history writes.
//
// The `name` parameter should be the file path for the SQLite database.
func New(name string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", fmt.Sprintf("%s?_journal=WAL&_timeout=5000", name))
	if err != nil {
		return nil, fmt.Errorf("connecting to db : %w", err)
	}

	db.SetMaxOpenConns(1)

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting dialect for migrations : %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migration : %w", err)
	}
	return db, nil
}

// Open is a convenience wrapper around New and NewRepository.
func Open(name string) (*Repository, error) {
	dbConn, err := New(name)
	if err != nil {
		return nil, err
	}
	return NewRepository(dbConn), nil
}
