package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File keeps one JSON document per slot in a directory.
type File struct {
	dir string
}

func DefaultSaveDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pefund", "saves"), nil
}

func NewFile(dir string) (*File, error) {
	if strings.TrimSpace(dir) == "" {
		d, err := DefaultSaveDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(slot string) string {
	return filepath.Join(f.dir, slot+".json")
}

func (f *File) Save(_ context.Context, slot string, snap Snapshot) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	body, err := Encode(snap)
	if err != nil {
		return err
	}
	tmp := f.path(slot) + ".tmp"
	if err := os.WriteFile(tmp, body, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(slot))
}

func (f *File) Load(_ context.Context, slot string) (Snapshot, error) {
	if err := ValidateSlot(slot); err != nil {
		return Snapshot{}, err
	}
	body, err := os.ReadFile(f.path(slot))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
		}
		return Snapshot{}, err
	}
	return Decode(body)
}

// List skips files that do not decode.
func (f *File) List(_ context.Context) ([]Meta, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	out := []Meta{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		body, err := os.ReadFile(filepath.Join(f.dir, name))
		if err != nil {
			continue
		}
		snap, err := Decode(body)
		if err != nil {
			continue
		}
		out = append(out, snap.Meta(strings.TrimSuffix(name, ".json")))
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *File) Delete(_ context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	if err := os.Remove(f.path(slot)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
		}
		return err
	}
	return nil
}

func (f *File) Close() error {
	return nil
}
