// Package snapshot persists the three circulation collections as JSON files,
// one per collection. An absent file is an empty collection (first run);
// malformed data is an explicit error so callers can tell "no data yet" from
// "data corrupted".
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	catalogmodels "biblio/internal/catalog/models"
	circulationmodels "biblio/internal/circulation/models"
	patronmodels "biblio/internal/patron/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	itemsFile   = "items.json"
	patronsFile = "patrons.json"
	loansFile   = "loans.json"
)

// Store reads and writes collection snapshots under one directory.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) LoadItems() ([]*catalogmodels.Item, error) {
	return load[*catalogmodels.Item](filepath.Join(s.dir, itemsFile))
}

func (s *Store) LoadPatrons() ([]*patronmodels.Patron, error) {
	return load[*patronmodels.Patron](filepath.Join(s.dir, patronsFile))
}

func (s *Store) LoadLoans() ([]*circulationmodels.Loan, error) {
	return load[*circulationmodels.Loan](filepath.Join(s.dir, loansFile))
}

func (s *Store) SaveItems(items []*catalogmodels.Item) error {
	return save(filepath.Join(s.dir, itemsFile), items)
}

func (s *Store) SavePatrons(patrons []*patronmodels.Patron) error {
	return save(filepath.Join(s.dir, patronsFile), patrons)
}

func (s *Store) SaveLoans(loans []*circulationmodels.Loan) error {
	return save(filepath.Join(s.dir, loansFile), loans)
}

// SaveAll writes the three collections concurrently and reports the first
// failure. Each file write is atomic, but there is no cross-file
// transaction; the database-backed stores exist for deployments that need
// one.
func (s *Store) SaveAll(ctx context.Context,
	items []*catalogmodels.Item,
	patrons []*patronmodels.Patron,
	loans []*circulationmodels.Loan,
) error {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return s.SaveItems(items) })
	g.Go(func() error { return s.SavePatrons(patrons) })
	g.Go(func() error { return s.SaveLoans(loans) })
	return g.Wait()
}

func load[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return out, nil
}

// save writes to a temp file in the same directory and renames it over the
// destination, so a crash mid-write never leaves a truncated snapshot.
func save[T any](path string, collection []T) error {
	if collection == nil {
		collection = []T{}
	}
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", path, err)
	}
	return nil
}
