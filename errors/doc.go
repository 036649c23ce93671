// Package errors provides structured errors for the dashcam daemon.
//
// # Overview
//
// Errors in the shutdown path are classified by what they mean for the
// shutdown sequence rather than by retryability: almost every failure in
// this daemon is a warning that must not stop the process from powering
// off cleanly. The one exception is a failed OS shutdown invocation,
// which is the end of the line and is logged at error severity.
//
// # Usage
//
// Creating a classified error:
//
//	err := errors.New(errors.ErrCodeNoBackend, "no usable GPIO backend")
//
// Wrapping an underlying failure:
//
//	if err := line.Close(); err != nil {
//	    return errors.Wrap(err, "closing gpio line")
//	}
//
// Deciding how loud to be:
//
//	if errors.SeverityOf(err) == errors.SeverityWarning {
//	    logger.Warn(err.Error())
//	}
//
// All errors produced here participate in the standard errors.Is/As chain.
package errors
