package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/teachback/teachback-backend/internal/domain"
	"github.com/teachback/teachback-backend/internal/platform/apierr"
	"github.com/teachback/teachback-backend/internal/platform/logger"
)

// FileStore keeps one JSON document per conversation at <dir>/<id>.json.
// Writes go through a temp file and rename so a crash never leaves a
// half-written record behind.
type FileStore struct {
	dir string
	log *logger.Logger
	mu  sync.Mutex
}

func NewFileStore(dir string, log *logger.Logger) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "database"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating conversation dir %q: %w", dir, err)
	}
	return &FileStore{dir: dir, log: log.With("store", "FileStore")}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) Save(ctx context.Context, conv *domain.Conversation) error {
	if conv == nil || conv.ID == uuid.Nil {
		return apierr.Validation(errors.New("conversation has no id"))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(conv.ID.String())
	stored, err := readRevision(path)
	if err != nil {
		return err
	}
	if stored != conv.Revision {
		return apierr.Conflict(fmt.Errorf("conversation %s: stored revision %d, have %d", conv.ID, stored, conv.Revision))
	}

	next := *conv
	next.Revision = conv.Revision + 1
	raw, err := json.MarshalIndent(&next, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing conversation %s: %w", conv.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, "conv-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing conversation %s: %w", conv.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persisting conversation %s: %w", conv.ID, err)
	}

	conv.Revision = next.Revision
	s.log.Debug("Saved conversation", "conversation_id", conv.ID.String(), "revision", conv.Revision)
	return nil
}

func (s *FileStore) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return nil, apierr.Validation(fmt.Errorf("conversation id %q is not a uuid", id))
	}

	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apierr.NotFound(fmt.Errorf("no conversation with id %s", id))
		}
		return nil, fmt.Errorf("reading conversation %s: %w", id, err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, apierr.Corrupt(fmt.Errorf("conversation %s: %w", id, err))
	}
	return &conv, nil
}

// readRevision reads just the revision of an existing record; a missing
// file reports revision 0. Unreadable records still surface as corrupt so a
// save cannot silently clobber them.
func readRevision(path string) (int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	var probe struct {
		Revision int64 `json:"revision"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0, apierr.Corrupt(fmt.Errorf("record %s: %w", path, err))
	}
	return probe.Revision, nil
}
