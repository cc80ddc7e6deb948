package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

type txKey struct{}

// txState holds the writes of an open transaction. They become visible on disk on commit.
type txState struct {
	writes map[string][]byte
	order  []string
}

func (t *txState) stage(rel string, body []byte) {
	if _, ok := t.writes[rel]; !ok {
		t.order = append(t.order, rel)
	}

	t.writes[rel] = body
}

// store is a directory of JSON documents. A single mutex serializes transactions and
// standalone writes, which gives every transaction an exclusive view of the data.
type store struct {
	root string
	mu   sync.Mutex
}

func newStore(root string) *store {
	return &store{root: root}
}

func txFromContext(ctx context.Context) *txState {
	tx, _ := ctx.Value(txKey{}).(*txState)

	return tx
}

func (s *store) runInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{writes: make(map[string][]byte)}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	return s.commit(tx)
}

// commit writes every staged document to a temporary file before renaming any of them, so a
// failed write leaves the previous documents in place. Only a crash during the rename phase
// can leave a transaction partly applied.
func (s *store) commit(tx *txState) error {
	temps := make([]string, 0, len(tx.order))

	for _, rel := range tx.order {
		tmp, err := s.writeTemp(rel, tx.writes[rel])
		if err != nil {
			removeFiles(temps)

			return fmt.Errorf("failed to commit %s: %w", rel, err)
		}

		temps = append(temps, tmp)
	}

	for i, rel := range tx.order {
		if err := os.Rename(temps[i], s.path(rel)); err != nil {
			removeFiles(temps[i:])

			return fmt.Errorf("failed to commit %s: %w", rel, err)
		}
	}

	return nil
}

func removeFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

// read decodes the document at rel into v. It returns false when the document does not exist.
func (s *store) read(ctx context.Context, rel string, v any) (bool, error) {
	var body []byte

	if tx := txFromContext(ctx); tx != nil {
		body = tx.writes[rel]
	}

	if body == nil {
		var err error

		body, err = os.ReadFile(s.path(rel))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}

			return false, fmt.Errorf("failed to read %s: %w", rel, err)
		}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", rel, err)
	}

	return true, nil
}

// write stores v at rel, staging it when ctx carries a transaction.
func (s *store) write(ctx context.Context, rel string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", rel, err)
	}

	if tx := txFromContext(ctx); tx != nil {
		tx.stage(rel, body)

		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeFile(rel, body)
}

// names lists the document names in dir, including documents staged by the current transaction.
func (s *store) names(ctx context.Context, dir string) ([]string, error) {
	seen := make(map[string]struct{})

	entries, err := os.ReadDir(s.path(dir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			seen[path.Join(dir, entry.Name())] = struct{}{}
		}
	}

	if tx := txFromContext(ctx); tx != nil {
		for rel := range tx.writes {
			if path.Dir(rel) == dir {
				seen[rel] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for rel := range seen {
		names = append(names, rel)
	}

	sort.Strings(names)

	return names, nil
}

func (s *store) writeFile(rel string, body []byte) error {
	tmp, err := s.writeTemp(rel, body)
	if err != nil {
		return err
	}

	if err := os.Rename(tmp, s.path(rel)); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("failed to replace %s: %w", rel, err)
	}

	return nil
}

// writeTemp writes body next to the document at rel and returns the temporary path.
func (s *store) writeTemp(rel string, body []byte) (string, error) {
	target := s.path(rel)

	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, body, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", rel, err)
	}

	return tmp, nil
}

func (s *store) path(rel string) string {
	return filepath.Clean(filepath.Join(s.root, filepath.FromSlash(rel)))
}

// validID rejects identifiers that would escape their collection directory.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

func docPath(dir, id string) string {
	return path.Join(dir, id+".json")
}

// readAll decodes every document in dir.
func readAll[T any](ctx context.Context, s *store, dir string) ([]*T, error) {
	names, err := s.names(ctx, dir)
	if err != nil {
		return nil, err
	}

	items := make([]*T, 0, len(names))

	for _, rel := range names {
		item := new(T)

		found, err := s.read(ctx, rel, item)
		if err != nil {
			return nil, err
		}

		if found {
			items = append(items, item)
		}
	}

	return items, nil
}
