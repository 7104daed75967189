package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/tfkr-ae/explorer/domain"
)

var _ domain.StorageRepository = (*Repository)(nil)

// GetValue implements the domain.StorageRepository interface.
// It returns domain.ErrKeyNotFound when the key has no row in the 'storage' table.
func (repo *Repository) GetValue(key string) (string, error) {
	var value string
	query := `SELECT value FROM storage WHERE key = ?`

	err := repo.dbConn.Get(&value, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("getting value for %s: %w", key, domain.ErrKeyNotFound)
		}
		return "", fmt.Errorf("getting value for %s: %w", key, err)
	}

	return value, nil
}

// SetValue implements the domain.StorageRepository interface.
// The whole value is replaced, there is no partial update format.
func (repo *Repository) SetValue(key string, value string) error {
	query := `INSERT INTO storage(key, value, updated_at)
		      VALUES (?, ?, CURRENT_TIMESTAMP)
		      ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	_, err := repo.dbConn.Exec(query, key, value)
	if err != nil {
		return fmt.Errorf("setting value for %s: %w", key, err)
	}

	return nil
}

// DeleteValue implements the domain.StorageRepository interface.
func (repo *Repository) DeleteValue(key string) error {
	query := `DELETE FROM storage WHERE key = ?`

	result, err := repo.dbConn.Exec(query, key)
	if err != nil {
		return fmt.Errorf("deleting value for %s: %w", key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deletion rows affected for %s: %w", key, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("deleting value for %s: %w", key, domain.ErrKeyNotFound)
	}

	return nil
}
