// Package repository defines the persistence contracts used by the domain
// packages together with their MySQL implementations. The sentinel values in
// this file let higher layers distinguish storage failures without importing
// the driver: ErrNotFound for a missing row, ErrDuplicateKey for a unique
// index violation and ErrConflict for a transaction the database aborted
// because of lock contention (deadlock or lock wait timeout).
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist or has been
// logically deleted.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned when an insert or update violates a unique
// index. Callers translate it into their own domain conflict.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrConflict is returned when the database gave up on a transaction
// because of contention. The whole unit of work may be retried.
var ErrConflict = errors.New("transaction conflict")

// ErrEmailExists and ErrNicknameExists are the two identity collisions on
// sign-up.
var (
	ErrEmailExists    = errors.New("email already exists")
	ErrNicknameExists = errors.New("nickname already exists")
)

// MySQL server error numbers the repositories react to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// mapError converts driver errors into the package sentinels. The original
// error stays in the chain for logging.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %s", ErrDuplicateKey, me.Message)
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %s", ErrConflict, me.Message)
		}
	}
	return err
}

// duplicateIndex returns the index name reported by a duplicate-entry error,
// e.g. "users.uq_users_email".
func duplicateIndex(err error) string {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return ""
	}
	i := strings.LastIndex(me.Message, "for key '")
	if i < 0 {
		return ""
	}
	return strings.TrimSuffix(me.Message[i+len("for key '"):], "'")
}
