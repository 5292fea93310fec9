package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// osExit is replaced in tests.
var osExit = os.Exit

// unwrapEnvelope returns err's envelope, if any, and the error that caused it.
func unwrapEnvelope(err error) (*errors.ErrorEnvelope, error) {
	envelope, ok := err.(*errors.ErrorEnvelope)
	if !ok || envelope == nil {
		return nil, err
	}
	if cause, ok := envelope.Original.(error); ok && cause != nil {
		return envelope, cause
	}
	return envelope, err
}

// ExitWithCode reports err against a foundry exit code and terminates.
// With a nil logger the report goes to stderr.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	if logger == nil {
		ExitWithCodeStderr(exitCode, msg, err)
		return
	}

	info, known := foundry.GetExitCodeInfo(exitCode)
	fields := []zap.Field{zap.Int("exit_code", int(exitCode))}
	if known {
		fields = append(fields,
			zap.String("exit_name", info.Name),
			zap.String("exit_category", info.Category))
	}

	envelope, cause := unwrapEnvelope(err)
	if envelope != nil {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("error_message", envelope.Message),
			zap.String("correlation_id", envelope.CorrelationID))
		if len(envelope.Context) > 0 {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	logger.Error(msg, fields...)
	osExit(int(exitCode))
}

// ExitWithCodeStderr is ExitWithCode for failures before a logger exists.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	writeFailure(os.Stderr, exitCode, msg, err)
	osExit(int(exitCode))
}

func writeFailure(w io.Writer, exitCode foundry.ExitCode, msg string, err error) {
	envelope, cause := unwrapEnvelope(err)
	switch {
	case envelope != nil:
		_, _ = fmt.Fprintf(w, "FATAL: %s [%s]: %s\n", msg, envelope.Code, envelope.Message)
		if cause != err {
			_, _ = fmt.Fprintf(w, "Underlying error: %v\n", cause)
		}
	case err != nil:
		_, _ = fmt.Fprintf(w, "FATAL: %s: %v\n", msg, err)
	default:
		_, _ = fmt.Fprintf(w, "FATAL: %s\n", msg)
	}

	if info, ok := foundry.GetExitCodeInfo(exitCode); ok {
		_, _ = fmt.Fprintf(w, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		return
	}
	_, _ = fmt.Fprintf(w, "Exit Code: %d\n", exitCode)
}
