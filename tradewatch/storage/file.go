// Package storage holds the ProfileStore backends the service directory
// persists to: a local JSON file, a Spaces bucket or a Mongo collection.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tortaapp/tradewatch/tradewatch/services"
)

// FileStore keeps the profile set in a single JSON file. Writes go to a
// temporary file that is renamed over the old one, so a crash mid-write
// leaves the previous set intact.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(_ context.Context) ([]services.Profile, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, services.ErrNoProfiles
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return decodeProfiles(data)
}

func (f *FileStore) Save(ctx context.Context, profiles []services.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeProfiles(profiles)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync profiles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

// encodeProfiles writes the JSON array shape shared by the file and
// bucket stores. Scores are derived on read, so they are zeroed here.
func encodeProfiles(profiles []services.Profile) ([]byte, error) {
	out := make([]services.Profile, len(profiles))
	for i, p := range profiles {
		p.ActivityScore = 0
		p.SearchIndex = ""
		p.Services = append([]services.Entry(nil), p.Services...)
		for j := range p.Services {
			p.Services[j].Score = 0
		}
		out[i] = p
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode profiles: %w", err)
	}
	return data, nil
}

func decodeProfiles(data []byte) ([]services.Profile, error) {
	var profiles []services.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}
	return profiles, nil
}
