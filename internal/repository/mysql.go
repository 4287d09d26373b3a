package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQL error 1062: duplicate entry for a unique key.
const mysqlErrDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique-constraint violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}

// isDuplicateKeyOn reports whether err is a unique-constraint violation
// on the named index.  The driver surfaces the index name in the error
// message ("Duplicate entry '...' for key 'uq_reservations_code'").
func isDuplicateKeyOn(err error, index string) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry && strings.Contains(me.Message, index)
}
