// Package memory implements the on-disk text memory store for rankforge
// experiments.
//
// Memory is plain UTF-8 text, one file per entity, under a per-experiment
// namespace:
//
//	<root>/<experiment>/item/item.<itemID>
//	<root>/<experiment>/user/user.<userID>                       (base variant)
//	<root>/<experiment>/user/user.<userID>/private-<domain>.txt  (cross-domain)
//	<root>/<experiment>/user/user.<userID>/crossDomain-<domain>.txt
//	<root>/<experiment>/user-long/user.<userID>                  (append-only)
//	<root>/<experiment>/groupMem/<group>.txt
//
// Files are overwritten in place except the long-memory log, which appends
// entries separated by LongMemorySeparator. Processing is strictly
// sequential, so there is never more than one writer.
package memory

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// ErrNotFound is returned when an entity has no memory file yet. The
// trainer treats it as fatal for the current interaction only.
var ErrNotFound = errors.New("memory: not found")

// LongMemorySeparator delimits entries in the append-only long-memory log.
const LongMemorySeparator = "\n=====\n"

// privateFiles matches the per-domain private description files inside a
// user's directory.
var privateFiles = glob.MustCompile("private-*.txt")

// Store reads and writes the text memory namespace for one experiment.
type Store struct {
	root       string
	experiment string
}

// NewStore creates a store rooted at <root>/<experiment>. Directories are
// created lazily on write.
func NewStore(root, experiment string) *Store {
	return &Store{root: root, experiment: experiment}
}

// Dir returns the namespace directory for this experiment.
func (s *Store) Dir() string {
	return filepath.Join(s.root, s.experiment)
}

func checkID(id string) error {
	if id == "" {
		return fmt.Errorf("memory: invalid id (empty)")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("memory: invalid id %q (contains path separator)", id)
	}
	return nil
}

func (s *Store) read(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("memory: read %s: %w", path, err)
	}
	return string(b), nil
}

func (s *Store) write(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("memory: create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("memory: write %s: %w", path, err)
	}
	return nil
}

func (s *Store) userPath(userID string) string {
	return filepath.Join(s.Dir(), "user", "user."+userID)
}

func (s *Store) itemPath(itemID string) string {
	return filepath.Join(s.Dir(), "item", "item."+itemID)
}

func (s *Store) longPath(userID string) string {
	return filepath.Join(s.Dir(), "user-long", "user."+userID)
}

// ReadUser returns the user's single self-introduction (base variant).
func (s *Store) ReadUser(userID string) (string, error) {
	if err := checkID(userID); err != nil {
		return "", err
	}
	return s.read(s.userPath(userID))
}

// WriteUser overwrites the user's self-introduction.
func (s *Store) WriteUser(userID, text string) error {
	if err := checkID(userID); err != nil {
		return err
	}
	return s.write(s.userPath(userID), text)
}

// ReadItem returns the item's self-description.
func (s *Store) ReadItem(itemID string) (string, error) {
	if err := checkID(itemID); err != nil {
		return "", err
	}
	return s.read(s.itemPath(itemID))
}

// WriteItem overwrites the item's self-description.
func (s *Store) WriteItem(itemID, text string) error {
	if err := checkID(itemID); err != nil {
		return err
	}
	return s.write(s.itemPath(itemID), text)
}

// ReadPrivate returns the user's in-domain private description
// (cross-domain variant).
func (s *Store) ReadPrivate(userID, domain string) (string, error) {
	if err := checkID(userID); err != nil {
		return "", err
	}
	return s.read(filepath.Join(s.userPath(userID), "private-"+domain+".txt"))
}

// WritePrivate overwrites the user's in-domain private description.
func (s *Store) WritePrivate(userID, domain, text string) error {
	if err := checkID(userID); err != nil {
		return err
	}
	return s.write(filepath.Join(s.userPath(userID), "private-"+domain+".txt"), text)
}

// ReadCrossDomain returns the user's inferred cross-domain preference as
// seen from the given domain.
func (s *Store) ReadCrossDomain(userID, domain string) (string, error) {
	if err := checkID(userID); err != nil {
		return "", err
	}
	return s.read(filepath.Join(s.userPath(userID), "crossDomain-"+domain+".txt"))
}

// WriteCrossDomain overwrites the user's cross-domain preference for the
// given domain.
func (s *Store) WriteCrossDomain(userID, domain, text string) error {
	if err := checkID(userID); err != nil {
		return err
	}
	return s.write(filepath.Join(s.userPath(userID), "crossDomain-"+domain+".txt"), text)
}

// AppendLongMemory appends a superseded self-introduction to the user's
// long-memory log, preceded by the separator.
func (s *Store) AppendLongMemory(userID, text string) error {
	if err := checkID(userID); err != nil {
		return err
	}
	path := s.longPath(userID)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("memory: create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("memory: open long memory %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(LongMemorySeparator + text); err != nil {
		return fmt.Errorf("memory: append long memory %s: %w", path, err)
	}
	return nil
}

// ReadLongMemory returns the full long-memory log for a user.
func (s *Store) ReadLongMemory(userID string) (string, error) {
	if err := checkID(userID); err != nil {
		return "", err
	}
	return s.read(s.longPath(userID))
}

// ConcatPrivate joins every private-<domain>.txt the user has, each under a
// small header naming the domain. The result feeds the cross-domain merge
// prompt.
func (s *Store) ConcatPrivate(userID string) (string, error) {
	if err := checkID(userID); err != nil {
		return "", err
	}
	dir := s.userPath(userID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return "", fmt.Errorf("memory: read user directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && privateFiles.Match(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		content, err := s.read(filepath.Join(dir, name))
		if err != nil {
			return "", err
		}
		domain := strings.TrimSuffix(strings.TrimPrefix(name, "private-"), ".txt")
		fmt.Fprintf(&b, "--- preferences in %s ---\n%s\n\n", domain, content)
	}
	return b.String(), nil
}

// ReadGroupMemory returns the shared memory text for an interest group.
func (s *Store) ReadGroupMemory(group string) (string, error) {
	if err := checkID(group); err != nil {
		return "", err
	}
	return s.read(filepath.Join(s.Dir(), "groupMem", group+".txt"))
}

// WriteGroupMemory overwrites the shared memory text for an interest group.
func (s *Store) WriteGroupMemory(group, text string) error {
	if err := checkID(group); err != nil {
		return err
	}
	return s.write(filepath.Join(s.Dir(), "groupMem", group+".txt"), text)
}

// Snapshot copies the entire namespace to a sibling directory suffixed with
// the given label, e.g. "<experiment>_3". It is a cheap full-copy
// checkpoint taken between steps; it is not atomic with respect to writes,
// which is safe only because the loop never interleaves a snapshot with a
// step.
func (s *Store) Snapshot(suffix string) error {
	src := s.Dir()
	dst := filepath.Join(s.root, s.experiment+"_"+suffix)
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("memory: snapshot %s already exists", dst)
	}
	return copyTree(src, dst)
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("memory: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("memory: create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("memory: copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
