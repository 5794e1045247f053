//go:build !sqlcipher
// +build !sqlcipher

package storage

import (
	"database/sql"
	"errors"
)

var errNoSQLCipher = errors.New(
	"encrypted database support is not compiled in; rebuild with '-tags sqlcipher'",
)

func openSecureSQLite(path string, key string) (*sql.DB, error) {
	return nil, errNoSQLCipher
}

func secureSQLiteSupported() bool {
	return false
}
