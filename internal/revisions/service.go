// Package revisions keeps named snapshots of a draft in a git repository per
// user and form.
package revisions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const snapshotFile = "fields.json"

var (
	ErrInvalidPath     = errors.New("invalid revision path")
	ErrVersionNotFound = errors.New("version not found")
)

var safeSegment = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Snapshot is what a version stores.
type Snapshot struct {
	Form       string            `json:"form"`
	Completion int               `json:"completion"`
	Fields     map[string]string `json:"fields"`
}

type Version struct {
	Hash      string    `json:"hash"`
	Name      string    `json:"name"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type FieldChange struct {
	Key    string `json:"key"`
	Before string `json:"before"`
	After  string `json:"after"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
	now     func() time.Time
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

// SaveVersion commits the snapshot under name. Saving an unchanged snapshot
// still records a version.
func (s *Service) SaveVersion(userID, formKey string, snapshot Snapshot, author, name string) (Version, error) {
	path, err := s.repoPath(userID, formKey)
	if err != nil {
		return Version{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Snapshot " + s.now().UTC().Format("2006-01-02 15:04")
	}

	lock := s.repoLock(path)
	lock.Lock()
	defer lock.Unlock()

	repo, err := openOrInit(path)
	if err != nil {
		return Version{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Version{}, fmt.Errorf("open worktree: %w", err)
	}

	if snapshot.Fields == nil {
		snapshot.Fields = map[string]string{}
	}
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return Version{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, snapshotFile), append(payload, '\n'), 0o644); err != nil {
		return Version{}, fmt.Errorf("write %s: %w", snapshotFile, err)
	}
	if _, err := worktree.Add(snapshotFile); err != nil {
		return Version{}, fmt.Errorf("git add snapshot: %w", err)
	}

	hash, err := worktree.Commit(name, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@members.ipurpose.local", sanitizeEmail(author)),
			When:  s.now(),
		},
	})
	if err != nil {
		return Version{}, fmt.Errorf("commit snapshot: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Version{}, fmt.Errorf("read commit object: %w", err)
	}
	return toVersion(commitObj), nil
}

// History lists versions newest first. A form with no versions yields an
// empty list.
func (s *Service) History(userID, formKey string, limit int) ([]Version, error) {
	path, err := s.repoPath(userID, formKey)
	if err != nil {
		return nil, err
	}
	lock := s.repoLock(path)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []Version{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []Version{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Version, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toVersion(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Get loads the snapshot stored at hash. Short hashes are accepted.
func (s *Service) Get(userID, formKey, hash string) (Snapshot, Version, error) {
	path, err := s.repoPath(userID, formKey)
	if err != nil {
		return Snapshot{}, Version{}, err
	}
	lock := s.repoLock(path)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Snapshot{}, Version{}, ErrVersionNotFound
	}
	if err != nil {
		return Snapshot{}, Version{}, fmt.Errorf("open repo: %w", err)
	}

	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return Snapshot{}, Version{}, ErrVersionNotFound
	}
	commitObj, err := repo.CommitObject(*resolved)
	if err != nil {
		return Snapshot{}, Version{}, ErrVersionNotFound
	}
	snapshot, err := readSnapshot(commitObj)
	if err != nil {
		return Snapshot{}, Version{}, err
	}
	return snapshot, toVersion(commitObj), nil
}

// Diff lists keys whose values differ between two field maps, sorted by key.
func Diff(from, to map[string]string) []FieldChange {
	keys := make(map[string]struct{}, len(from)+len(to))
	for k := range from {
		keys[k] = struct{}{}
	}
	for k := range to {
		keys[k] = struct{}{}
	}
	changes := make([]FieldChange, 0)
	for k := range keys {
		if from[k] != to[k] {
			changes = append(changes, FieldChange{Key: k, Before: from[k], After: to[k]})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}

func (s *Service) repoPath(userID, formKey string) (string, error) {
	if !safeSegment.MatchString(userID) || !safeSegment.MatchString(formKey) {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.baseDir, userID, formKey), nil
}

func (s *Service) repoLock(path string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[path] = lock
	}
	return lock
}

func openOrInit(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.Main)); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func readSnapshot(commitObj *object.Commit) (Snapshot, error) {
	file, err := commitObj.File(snapshotFile)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s from commit: %w", snapshotFile, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(contents), &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snapshot.Fields == nil {
		snapshot.Fields = map[string]string{}
	}
	return snapshot, nil
}

func toVersion(commitObj *object.Commit) Version {
	return Version{
		Hash:      commitObj.Hash.String()[:7],
		Name:      strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "member"
	}
	return string(out)
}
