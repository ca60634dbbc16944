package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
)

// MessagesRepository reads broadcast messages from a JSON file mapping
// hostname prefixes to text, for example {"f1": "Cluster 1 closes at 18:00"}.
// Comments and trailing commas are allowed. The file is re-read on every
// lookup so edits apply without a restart.
type MessagesRepository struct {
	path   string
	logger *zap.Logger
}

// NewMessagesRepository constructs a repository for the file at path.
func NewMessagesRepository(path string, logger *zap.Logger) *MessagesRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessagesRepository{path: path, logger: logger}
}

// ForHost returns every message whose prefix matches hostname, joined by
// newlines, shortest prefix first. A missing file yields "".
func (r *MessagesRepository) ForHost(hostname string) string {
	if r == nil || r.path == "" {
		return ""
	}
	messages, err := r.load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("failed to read messages file", zap.String("path", r.path), zap.Error(err))
		}
		return ""
	}
	return matchMessages(messages, hostname)
}

func (r *MessagesRepository) load() (map[string]string, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, err
	}
	var messages map[string]string
	if err := json.Unmarshal(jsonc.ToJSON(raw), &messages); err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.path, err)
	}
	return messages, nil
}

func matchMessages(messages map[string]string, hostname string) string {
	prefixes := make([]string, 0, len(messages))
	for prefix := range messages {
		if strings.HasPrefix(hostname, prefix) {
			prefixes = append(prefixes, prefix)
		}
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) < len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	parts := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		if msg := strings.TrimSpace(messages[prefix]); msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "\n")
}
