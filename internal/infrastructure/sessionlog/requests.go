package sessionlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/khanhnv2901/privscan/internal/domain/session"
)

// LoadRequests decodes a network_requests.json array. An empty path or a
// missing file yields no requests and no error; invalid records are skipped.
func LoadRequests(path string, logger *zap.SugaredLogger) ([]session.NetworkRequest, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read network requests: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode network requests %s: %w", path, err)
	}

	requests := make([]session.NetworkRequest, 0, len(raw))
	for i, item := range raw {
		req, err := session.NewNetworkRequest(item)
		if err != nil {
			logger.Warnw("skipping network request", "file", path, "index", i, "reason", err)
			continue
		}
		requests = append(requests, req)
	}
	return requests, nil
}
