package oracle

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/godror/godror"
	"github.com/koustreak/datri-oracle/internal/errs"
)

// Oracle error numbers the driver classifies.
const (
	oraTableNotFound  = 942
	oraObjectNotFound = 4043
	oraInvalidLogin   = 1017
	oraNoPrivilege    = 1031
	oraNoSession      = 1045
	oraAccountLocked  = 28000
	oraPasswordExpiry = 28001
	oraNoListenerSID  = 12505
	oraNoListenerSvc  = 12514
)

// lostConnection are the codes after which the session is unusable and a
// fresh connection may succeed.
var lostConnection = map[int]bool{
	28:    true, // session killed
	1012:  true, // not logged on
	2396:  true, // idle time exceeded
	3113:  true, // end-of-file on communication channel
	3114:  true, // not connected
	3135:  true, // connection lost contact
	12170: true, // connect timeout
	12537: true, // connection closed
	12541: true, // no listener
	12543: true, // destination host unreachable
}

const notImplemented = "has not been implemented"

// mapError translates godror errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if e, ok := err.(*errs.Error); ok {
		return e
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	if strings.Contains(err.Error(), notImplemented) {
		return errs.Wrap(errs.ErrKindUnsupported, msg, err)
	}

	if oraErr, ok := godror.AsOraErr(err); ok && oraErr.Code() != 0 {
		return errs.WrapCode(classifyOracleCode(oraErr.Code()), msg+": "+oraErr.Message(), oraErr.Code(), err)
	}

	if isLostConnection(err) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifyOracleCode maps ORA-NNNNN numbers to ErrKind.
func classifyOracleCode(code int) errs.ErrKind {
	switch {
	case code == oraTableNotFound, code == oraObjectNotFound:
		return errs.ErrKindNotFound
	case code == oraInvalidLogin, code == oraNoPrivilege, code == oraNoSession,
		code == oraAccountLocked, code == oraPasswordExpiry:
		return errs.ErrKindPermissionDenied
	case lostConnection[code], code == oraNoListenerSID, code == oraNoListenerSvc:
		return errs.ErrKindConnectionFailed
	default:
		return errs.ErrKindQueryFailed
	}
}

// isLostConnection reports whether err means the session is gone.
func isLostConnection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if code := errs.CodeOf(err); code != 0 {
		return lostConnection[code]
	}
	if oraErr, ok := godror.AsOraErr(err); ok && lostConnection[oraErr.Code()] {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "DPI-1080") || strings.Contains(msg, "DPI-1010")
}
