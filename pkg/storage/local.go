package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStorage writes each object to <root>/<ref> and its original name to <root>/<ref>.name.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		root = "./storage"
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Name() string { return "local" }

func (s *LocalStorage) Save(ctx context.Context, name string, data []byte) (string, error) {
	ref := newRef(name)
	if err := os.WriteFile(filepath.Join(s.root, ref), data, 0644); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.root, ref+".name"), []byte(filepath.Base(name)), 0644); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *LocalStorage) Open(ctx context.Context, ref string) (*Object, error) {
	if !validRef(ref) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.root, ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	name := ref
	if raw, err := os.ReadFile(filepath.Join(s.root, ref+".name")); err == nil {
		name = string(raw)
	}
	return &Object{Ref: ref, Name: name, Data: data}, nil
}

func (s *LocalStorage) Delete(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.root, ref))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	_ = os.Remove(filepath.Join(s.root, ref+".name"))
	return err
}
