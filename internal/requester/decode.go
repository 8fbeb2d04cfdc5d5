package requester

import (
	"encoding/json"
	"net/http"

	"github.com/brizzai/imagefeed/internal/logger"
	"go.uber.org/zap"
)

// Decode unmarshals a JSON payload into T. Wire keys are snake_case and the
// target types carry matching json tags.
func Decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		logger.Warn("failed to decode payload", zap.Error(err), zap.ByteString("payload", truncate(data, 512)))
		var zero T
		return zero, &DecodeError{Err: err, Payload: data}
	}
	return v, nil
}

// Fetch executes req and decodes the payload into T
func Fetch[T any](e Executor, req *http.Request) (T, error) {
	data, err := e.Execute(req)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](data)
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
