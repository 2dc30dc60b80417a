package session

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Fixed artifact names inside a session directory.
const (
	profileFile  = "agents.md"
	historyFile  = "history.json"
	stateFile    = "workspace_state.json"
	planFile     = "study_plan.md"
	ExercisesDir = "exercises"
	NotesDir     = "notes"
)

// reservedChars are stripped from theme slugs: path separators plus
// characters that are illegal in filenames on common filesystems.
var reservedChars = regexp.MustCompile(`[<>:"/\\|?*]`)

const maxSlugLen = 50

// profileTemplate seeds agents.md on session creation. The "Theme:" line is
// parsed back when a session is reloaded from disk.
const profileTemplate = `# Learning Session Agent State

Theme: %s
Created: %s

## Student Profile
- Learning Goal: [To be filled]
- Background: [To be filled]
- Preferred Depth: [To be filled]
- Time Commitment: [To be filled]

## Progress Tracking
- Current Topic: [Not started]
- Topics Completed: []
- Weak Points: []
- Strengths: []

## Session Notes
`

var themeLineRe = regexp.MustCompile(`Theme:\s*(.+)`)

// persistedState mirrors workspace_state.json.
type persistedState struct {
	Phase             Phase  `json:"current_phase"`
	TokenCount        int    `json:"token_count"`
	TokenThreshold    int    `json:"token_threshold"`
	CompressedContext string `json:"compressed_context"`
}

// FileEntry describes one file inside a session directory.
type FileEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Info is the listing view of a session.
type Info struct {
	ID        string    `json:"id"`
	Theme     string    `json:"theme"`
	CreatedAt time.Time `json:"created_at"`
	Path      string    `json:"path"`
}

// FileStore persists sessions as one directory each under root, holding the
// profile, history, state, and study-plan artifacts plus the exercises and
// notes subdirectories. Saves are full overwrites of history + state; the
// caller serializes concurrent saves for the same session.
type FileStore struct {
	mu   sync.RWMutex
	root string
}

// NewFileStore creates a FileStore rooted at root, creating it if needed.
func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &FileStore{root: abs}, nil
}

// Root returns the absolute workspace root.
func (st *FileStore) Root() string { return st.root }

// Dir returns the directory owned by a session.
func (st *FileStore) Dir(id string) string {
	return filepath.Join(st.root, id)
}

// sanitizeSlug strips reserved characters and bounds the slug to maxSlugLen
// characters, never splitting a rune.
func sanitizeSlug(theme string) string {
	s := reservedChars.ReplaceAllString(theme, "")
	if utf8.RuneCountInString(s) > maxSlugLen {
		s = string([]rune(s)[:maxSlugLen])
	}
	return strings.TrimSpace(s)
}

// NewID derives a session id from the creation time and the sanitized theme.
func NewID(theme string, now time.Time) string {
	return now.Format("20060102_150405") + "_" + sanitizeSlug(theme)
}

// Create initializes a new session directory with the profile artifact, the
// state record, and the exercises/notes subdirectories. The token threshold
// is fixed at creation time and never recomputed from later config changes.
func (st *FileStore) Create(theme string, tokenThreshold int) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	s := &Session{
		ID:             NewID(theme, now),
		Theme:          theme,
		CreatedAt:      now,
		Phase:          PhaseInit,
		TokenThreshold: tokenThreshold,
	}
	s.Path = st.Dir(s.ID)

	for _, dir := range []string{s.Path, filepath.Join(s.Path, ExercisesDir), filepath.Join(s.Path, NotesDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}

	profile := fmt.Sprintf(profileTemplate, theme, now.Format(time.RFC3339))
	if err := atomicWrite(filepath.Join(s.Path, profileFile), []byte(profile)); err != nil {
		return nil, fmt.Errorf("write profile: %w", err)
	}

	if err := st.save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get reloads a session from disk by id, reconstructing phase, token
// accounting, and the full message log from the persisted artifacts.
func (st *FileStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	dir := st.Dir(id)
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("session not found: %s", id)
	}

	s := &Session{
		ID:        id,
		Theme:     id, // fallback when the profile has no Theme line
		Path:      dir,
		Phase:     PhaseInquiry,
		CreatedAt: fi.ModTime(),
	}

	if data, err := os.ReadFile(filepath.Join(dir, profileFile)); err == nil {
		if m := themeLineRe.FindSubmatch(data); m != nil {
			s.Theme = strings.TrimSpace(string(m[1]))
		}
	}

	if data, err := os.ReadFile(filepath.Join(dir, historyFile)); err == nil {
		if err := json.Unmarshal(data, &s.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal history: %w", err)
		}
	}

	if data, err := os.ReadFile(filepath.Join(dir, stateFile)); err == nil {
		var ps persistedState
		if err := json.Unmarshal(data, &ps); err != nil {
			return nil, fmt.Errorf("unmarshal state: %w", err)
		}
		if ps.Phase != "" {
			s.Phase = ps.Phase
		}
		s.TokenCount = ps.TokenCount
		s.TokenThreshold = ps.TokenThreshold
		s.CompressedContext = ps.CompressedContext
	}

	return s, nil
}

// List returns all sessions sorted by creation time descending.
func (st *FileStore) List() ([]Info, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	entries, err := os.ReadDir(st.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list workspace root: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(st.root, entry.Name())
		info := Info{ID: entry.Name(), Theme: entry.Name(), Path: dir}
		if data, err := os.ReadFile(filepath.Join(dir, profileFile)); err == nil {
			if m := themeLineRe.FindSubmatch(data); m != nil {
				info.Theme = strings.TrimSpace(string(m[1]))
			}
		}
		if fi, err := entry.Info(); err == nil {
			info.CreatedAt = fi.ModTime()
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// Save overwrites the history and state artifacts. In-memory state stays
// authoritative if the write fails; the caller decides whether to retry.
func (st *FileStore) Save(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.save(s)
}

func (st *FileStore) save(s *Session) error {
	history, err := json.MarshalIndent(s.Messages, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if s.Messages == nil {
		history = []byte("[]")
	}
	if err := atomicWrite(filepath.Join(s.Path, historyFile), history); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	state, err := json.MarshalIndent(persistedState{
		Phase:             s.Phase,
		TokenCount:        s.TokenCount,
		TokenThreshold:    s.TokenThreshold,
		CompressedContext: s.CompressedContext,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := atomicWrite(filepath.Join(s.Path, stateFile), state); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// StudyPlan reads the study-plan artifact. Missing plan is not an error; the
// teaching prompt simply gets an empty slot.
func (st *FileStore) StudyPlan(id string) string {
	data, err := os.ReadFile(filepath.Join(st.Dir(id), planFile))
	if err != nil {
		return ""
	}
	return string(data)
}

// SaveStudyPlan persists the plan text verbatim.
func (st *FileStore) SaveStudyPlan(id, plan string) error {
	if err := atomicWrite(filepath.Join(st.Dir(id), planFile), []byte(plan)); err != nil {
		return fmt.Errorf("write study plan: %w", err)
	}
	return nil
}

// Profile reads the profile/progress artifact.
func (st *FileStore) Profile(id string) string {
	data, err := os.ReadFile(filepath.Join(st.Dir(id), profileFile))
	if err != nil {
		return ""
	}
	return string(data)
}

// SaveExercise persists an exercise under a time-based id and returns it.
func (st *FileStore) SaveExercise(sessionID string, ex *Exercise) (string, error) {
	id := fmt.Sprintf("ex_%d", time.Now().Unix())
	data, err := json.MarshalIndent(ex, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal exercise: %w", err)
	}
	path := filepath.Join(st.Dir(sessionID), ExercisesDir, id+".json")
	if err := atomicWrite(path, data); err != nil {
		return "", fmt.Errorf("write exercise: %w", err)
	}
	return id, nil
}

// LoadExercise fetches a persisted exercise by id.
func (st *FileStore) LoadExercise(sessionID, exerciseID string) (*Exercise, error) {
	path := filepath.Join(st.Dir(sessionID), ExercisesDir, exerciseID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("exercise not found: %s", exerciseID)
		}
		return nil, fmt.Errorf("read exercise: %w", err)
	}
	var ex Exercise
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("unmarshal exercise: %w", err)
	}
	return &ex, nil
}

// FileTree walks the session directory and returns up to limit entries with
// paths relative to the session root. limit <= 0 means no cap.
func (st *FileStore) FileTree(id string, limit int) ([]FileEntry, error) {
	dir := st.Dir(id)
	var tree []FileEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if limit > 0 && len(tree) >= limit {
			return filepath.SkipAll
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entry := FileEntry{Name: d.Name(), Path: rel}
		if fi, err := d.Info(); err == nil {
			entry.Size = fi.Size()
		}
		tree = append(tree, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk session dir: %w", err)
	}
	return tree, nil
}

// atomicWrite writes via a temp file + rename in the target directory.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
