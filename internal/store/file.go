package store

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"gatherbot/internal/fileutil"
	"gatherbot/internal/model"
)

// FileBackend persists the collection as one YAML document.
//
// Behavior:
//   - If the file does not exist, Load returns an empty collection.
//   - If it exists but is not a valid event document (syntax errors,
//     unknown fields, a kind/participant mismatch), Load fails.
//   - Save writes atomically via a temp file + rename with 0600 perms.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Load() ([]*model.Event, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*model.Event{}, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []*model.Event{}, nil
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return decodeRecords(doc.Events)
}

func (b *FileBackend) Save(events []*model.Event) error {
	records, err := encodeEvents(events)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(document{Events: records}); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	return fileutil.WriteAtomic(b.path, buf.Bytes(), 0o600, ".gatherbot-events-*.tmp")
}
