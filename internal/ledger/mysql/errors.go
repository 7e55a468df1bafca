package mysql

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/theatre-ticketing/internal/ledger"
	"github.com/iliyamo/theatre-ticketing/internal/model"
)

// MySQL server error numbers the ledger reacts to.
const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// classify marks retryable driver failures with model.ErrTransient and
// passes everything else through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *gomysql.MySQLError
	if errors.As(err, &me) && (me.Number == errLockWaitTimeout || me.Number == errDeadlock) {
		return fmt.Errorf("%w: %w", model.ErrTransient, err)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, gomysql.ErrInvalidConn) {
		return fmt.Errorf("%w: %w", model.ErrTransient, err)
	}
	return err
}

// classifyInsert maps a duplicate key on the seat index to
// model.ErrSeatOccupied and one on the code index to
// ledger.ErrDuplicateCode.
func classifyInsert(err error, t *model.Ticket) error {
	var me *gomysql.MySQLError
	if errors.As(err, &me) && me.Number == errDupEntry {
		if strings.Contains(me.Message, "uq_tickets_code") {
			return fmt.Errorf("code %q: %w", t.Code, ledger.ErrDuplicateCode)
		}
		return fmt.Errorf("seat %s: %w", t.Key(), model.ErrSeatOccupied)
	}
	return classify(err)
}
