package main

import (
	"os"
	"path/filepath"

	"genealogycore/pkg/domain"
)

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

func writePayloads(dir string, m domain.MediaWithData) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if m.File != nil {
		if err := os.WriteFile(filepath.Join(dir, filepath.Base(m.FileName)), m.File, 0o644); err != nil {
			return err
		}
	}
	if m.Thumbnail != nil {
		if err := os.WriteFile(filepath.Join(dir, "thumbnail-"+filepath.Base(m.FileName)), m.Thumbnail, 0o644); err != nil {
			return err
		}
	}
	return nil
}
