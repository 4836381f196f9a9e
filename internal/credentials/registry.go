package credentials

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"toolview/config"
	"toolview/pkg/db"
	"toolview/pkg/migration"
)

var errEmptySecretName = errors.New("secret name cannot be empty")

var (
	initOnce sync.Once
	initErr  error
)

func initDB() error {
	initOnce.Do(func() {
		dbPath, err := config.GetDatabasePath()
		if err != nil {
			initErr = err
			return
		}

		if err := db.Initialize(dbPath); err != nil {
			initErr = err
			return
		}

		writeDB, err := db.GetWriteDB()
		if err != nil {
			initErr = err
			return
		}

		runner := migration.NewRunner(writeDB)
		if err := runner.Run(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			return
		}
	})

	return initErr
}

// RegisterSecret records that a secret of this name exists. The value
// itself only ever lives in the keyring.
func RegisterSecret(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errEmptySecretName
	}

	if err := initDB(); err != nil {
		return err
	}

	writeDB, err := db.GetWriteDB()
	if err != nil {
		return err
	}

	ctx := context.Background()
	now := time.Now().Unix()

	_, err = writeDB.ExecContext(ctx,
		`INSERT INTO secrets(name, created_at, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET updated_at = ?`,
		trimmed, now, now, now)
	return err
}

func UnregisterSecret(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errEmptySecretName
	}

	if err := initDB(); err != nil {
		return err
	}

	writeDB, err := db.GetWriteDB()
	if err != nil {
		return err
	}

	ctx := context.Background()
	_, err = writeDB.ExecContext(ctx, `DELETE FROM secrets WHERE name = ?`, trimmed)
	return err
}

// ListSecrets returns the registered secret names, folding in any known
// API keys that sit in the keyring without a registry row.
func ListSecrets() ([]string, error) {
	if err := initDB(); err != nil {
		return nil, err
	}

	readDB, err := db.GetReadDB()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	rows, err := readDB.QueryContext(ctx, `SELECT name FROM secrets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	added := false
	for _, keyName := range knownAPIKeyNames {
		exists, err := HasSecret(keyName)
		if err != nil {
			return nil, err
		}
		if exists && !slices.Contains(names, keyName) {
			names = append(names, keyName)
			added = true
		}
	}
	if added {
		sort.Strings(names)
	}

	return names, nil
}
