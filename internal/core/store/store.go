// Package store is the persistent, single-writer ProjectStore: project
// metadata, per-language sentences, rare-word records, content-addressed
// artifact paths and per-step progress, all backed by SQLite. It is the
// only place in the pipeline that holds mutable shared state; every
// other component reads and writes through it.
package store

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	_ "modernc.org/sqlite"
)

// StepStatus is one of the fixed progress states a pipeline step passes
// through.
type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepRunning  StepStatus = "running"
	StepComplete StepStatus = "complete"
	StepFailed   StepStatus = "failed"
)

// Fixed step order the Orchestrator drives the project through.
var StepOrder = []string{
	"sentences",
	"translations",
	"rare_words_extract",
	"rare_words_translate",
	"tts_source",
	"tts_target",
	"tts_wordcards",
	"audio_combined",
	"video",
}

// Project is the root entity: one row per slug.
type Project struct {
	Slug           string
	SourceLang     string
	TargetLang     string
	OriginalText   string
	TotalSentences int
	CreatedAt      time.Time
}

// RareWordRecord is one rare word assigned to a sentence.
type RareWordRecord struct {
	SentenceIdx  int
	WordPosition int
	Surface      string
	Lemma        string
	Zipf         float64
	Translation  string
}

// Artifact is a content-addressed file reference: TTS audio, combined
// audio, or rendered video, keyed by kind + key (e.g. a text/lang/voice hash).
type Artifact struct {
	Kind       string
	Key        string
	Path       string
	DurationMs int64
	Checksum   string
}

// StepProgress mirrors one row of the progress table.
type StepProgress struct {
	Step   string
	Done   int
	Total  int
	Status StepStatus
}

// Store is a thread-safe SQLite-backed ProjectStore. A single Store
// instance is expected to own one database file; the Orchestrator and
// worker pools share it through this struct's mutex-guarded methods.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

var (
	instance     *Store
	instanceOnce sync.Once
)

// GetInstance returns the process-wide singleton Store for dbPath,
// opening it on first call.
func GetInstance(dbPath string) (*Store, error) {
	var initErr error
	instanceOnce.Do(func() {
		instance, initErr = Open(dbPath)
	})
	return instance, initErr
}

// Open creates or opens the project database at dbPath. An empty path
// defaults to "narrata.db" in the working directory.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = "narrata.db"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	s := &Store{db: db, path: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		slug TEXT PRIMARY KEY,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		original_text TEXT NOT NULL DEFAULT '',
		total_sentences INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sentences (
		project_slug TEXT NOT NULL,
		idx INTEGER NOT NULL,
		lang TEXT NOT NULL,
		text TEXT NOT NULL,
		UNIQUE(project_slug, idx, lang)
	);
	CREATE INDEX IF NOT EXISTS idx_sentences_project ON sentences(project_slug, lang);

	CREATE TABLE IF NOT EXISTS rare_words (
		project_slug TEXT NOT NULL,
		sentence_idx INTEGER NOT NULL,
		word_position INTEGER NOT NULL,
		surface TEXT NOT NULL,
		lemma TEXT NOT NULL,
		zipf REAL NOT NULL,
		translation TEXT NOT NULL DEFAULT '',
		UNIQUE(project_slug, lemma)
	);
	CREATE INDEX IF NOT EXISTS idx_rare_words_project ON rare_words(project_slug, sentence_idx);

	CREATE TABLE IF NOT EXISTS artifacts (
		project_slug TEXT NOT NULL,
		kind TEXT NOT NULL,
		key TEXT NOT NULL,
		path TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		checksum TEXT NOT NULL DEFAULT '',
		UNIQUE(project_slug, kind, key)
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_project ON artifacts(project_slug, kind);

	CREATE TABLE IF NOT EXISTS progress (
		project_slug TEXT NOT NULL,
		step TEXT NOT NULL,
		done INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		UNIQUE(project_slug, step)
	);

	CREATE TABLE IF NOT EXISTS quota_usage (
		service TEXT PRIMARY KEY,
		month TEXT NOT NULL,
		chars_used INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateOrOpen returns the Project for slug, creating its row (and
// seeding pending progress rows for every step) on first use.
func (s *Store) CreateOrOpen(slug, source, target string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p Project
	err := s.db.QueryRow(`
		SELECT slug, source_lang, target_lang, original_text, total_sentences, created_at
		FROM projects WHERE slug = ?
	`, slug).Scan(&p.Slug, &p.SourceLang, &p.TargetLang, &p.OriginalText, &p.TotalSentences, &p.CreatedAt)

	if err == nil {
		return &p, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("query project: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO projects (slug, source_lang, target_lang) VALUES (?, ?, ?)
	`, slug, source, target); err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	for _, step := range StepOrder {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO progress (project_slug, step, status) VALUES (?, ?, ?)
		`, slug, step, string(StepPending)); err != nil {
			return nil, fmt.Errorf("seed progress %s: %w", step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &Project{Slug: slug, SourceLang: source, TargetLang: target, CreatedAt: time.Now()}, nil
}

// SetOriginalText stores the source text once; subsequent calls are
// idempotent no-ops when the text is unchanged.
func (s *Store) SetOriginalText(slug, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE projects SET original_text = ? WHERE slug = ?`, text, slug)
	return err
}

// PutSentences writes every sentence row for (slug, lang) in one
// transaction — all rows land or none do. When lang is the project's
// source language, total_sentences is updated to len(texts).
func (s *Store) PutSentences(slug, lang string, texts []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO sentences (project_slug, idx, lang, text) VALUES (?, ?, ?, ?)
		ON CONFLICT(project_slug, idx, lang) DO UPDATE SET text = excluded.text
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for idx, text := range texts {
		if _, err := stmt.Exec(slug, idx, lang, text); err != nil {
			return fmt.Errorf("insert sentence %d: %w", idx, err)
		}
	}

	var source string
	if err := tx.QueryRow(`SELECT source_lang FROM projects WHERE slug = ?`, slug).Scan(&source); err != nil {
		return fmt.Errorf("lookup source lang: %w", err)
	}
	if lang == source {
		if _, err := tx.Exec(`UPDATE projects SET total_sentences = ? WHERE slug = ?`, len(texts), slug); err != nil {
			return fmt.Errorf("update total_sentences: %w", err)
		}
	}

	return tx.Commit()
}

// GetSentences reads every sentence for (slug, lang), ordered by idx.
func (s *Store) GetSentences(slug, lang string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT idx, text FROM sentences WHERE project_slug = ? AND lang = ? ORDER BY idx ASC
	`, slug, lang)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byIdx := make(map[int]string)
	maxIdx := -1
	for rows.Next() {
		var idx int
		var text string
		if err := rows.Scan(&idx, &text); err != nil {
			return nil, err
		}
		byIdx[idx] = text
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	out := make([]string, maxIdx+1)
	for idx, text := range byIdx {
		out[idx] = text
	}
	return out, nil
}

// PutTranslation writes (or overwrites) the idx-th sentence for the
// project's target language.
func (s *Store) PutTranslation(slug string, idx int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target string
	if err := s.db.QueryRow(`SELECT target_lang FROM projects WHERE slug = ?`, slug).Scan(&target); err != nil {
		return fmt.Errorf("lookup target lang: %w", err)
	}

	_, err := s.db.Exec(`
		INSERT INTO sentences (project_slug, idx, lang, text) VALUES (?, ?, ?, ?)
		ON CONFLICT(project_slug, idx, lang) DO UPDATE SET text = excluded.text
	`, slug, idx, target, text)
	return err
}

// GetTranslation reads the idx-th target-language sentence, if present.
func (s *Store) GetTranslation(slug string, idx int) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var target string
	if err := s.db.QueryRow(`SELECT target_lang FROM projects WHERE slug = ?`, slug).Scan(&target); err != nil {
		return "", false, fmt.Errorf("lookup target lang: %w", err)
	}

	var text string
	err := s.db.QueryRow(`
		SELECT text FROM sentences WHERE project_slug = ? AND idx = ? AND lang = ?
	`, slug, idx, target).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// FindSimilarSentence scans the sentences already stored for (slug,
// lang) whose length lies within the threshold band and returns the
// closest fuzzy match at or above threshold — a reuse path for near-
// duplicate lines (repeated narration, refrains) so they needn't be
// re-translated from scratch. An exact match scores 1.0; the scan still
// visits every candidate row.
func (s *Store) FindSimilarSentence(slug, lang, text string, threshold float64) (string, float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	normalized := strings.ToLower(strings.TrimSpace(text))
	textLen := len(normalized)
	minLen := int(float64(textLen) * threshold)
	maxLen := int(float64(textLen) / threshold)
	if threshold <= 0 {
		minLen, maxLen = 0, 1<<30
	}

	rows, err := s.db.Query(`
		SELECT idx, text FROM sentences
		WHERE project_slug = ? AND lang = ? AND LENGTH(text) BETWEEN ? AND ?
	`, slug, lang, minLen, maxLen)
	if err != nil {
		return "", 0, false, err
	}
	defer rows.Close()

	var bestText string
	var bestIdx int
	var bestScore float64
	found := false

	for rows.Next() {
		var idx int
		var candidate string
		if err := rows.Scan(&idx, &candidate); err != nil {
			continue
		}
		score := similarity(normalized, strings.ToLower(strings.TrimSpace(candidate)))
		if score >= threshold && score > bestScore {
			bestScore, bestText, bestIdx, found = score, candidate, idx, true
		}
	}
	_ = bestIdx
	return bestText, bestScore, found, nil
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// PutRareWords replaces the rare-word records for one sentence. Lemma
// uniqueness across the whole project is enforced by the rare_words
// table's UNIQUE(project_slug, lemma) constraint: an upsert that tries
// to place an already-placed lemma in a different sentence is rejected
// by the RareWordIndex layer before it reaches the store, never here.
func (s *Store) PutRareWords(slug string, idx int, words []RareWordRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM rare_words WHERE project_slug = ? AND sentence_idx = ?`, slug, idx); err != nil {
		return fmt.Errorf("clear existing: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO rare_words (project_slug, sentence_idx, word_position, surface, lemma, zipf, translation)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_slug, lemma) DO UPDATE SET
			sentence_idx = excluded.sentence_idx,
			word_position = excluded.word_position,
			surface = excluded.surface,
			zipf = excluded.zipf,
			translation = excluded.translation
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, w := range words {
		if _, err := stmt.Exec(slug, idx, w.WordPosition, w.Surface, w.Lemma, w.Zipf, w.Translation); err != nil {
			return fmt.Errorf("insert rare word %q: %w", w.Lemma, err)
		}
	}

	return tx.Commit()
}

// GetRareWords returns every rare-word record for the project, ordered
// by sentence then ascending zipf (matching the per-sentence invariant).
func (s *Store) GetRareWords(slug string) ([]RareWordRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT sentence_idx, word_position, surface, lemma, zipf, translation
		FROM rare_words WHERE project_slug = ?
		ORDER BY sentence_idx ASC, zipf ASC
	`, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RareWordRecord
	for rows.Next() {
		var r RareWordRecord
		if err := rows.Scan(&r.SentenceIdx, &r.WordPosition, &r.Surface, &r.Lemma, &r.Zipf, &r.Translation); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ArtifactKey derives a content-addressed key from the artifact's
// logical inputs, using a stable (non-randomized) hash so the same
// inputs produce the same key across runs and machines.
func ArtifactKey(text, lang, voiceKey string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + lang + "\x00" + voiceKey))
	return fmt.Sprintf("%x", sum)
}

// PutArtifact upserts a content-addressed artifact reference.
func (s *Store) PutArtifact(slug, kind, key, path string, durationMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO artifacts (project_slug, kind, key, path, duration_ms) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_slug, kind, key) DO UPDATE SET
			path = excluded.path, duration_ms = excluded.duration_ms
	`, slug, kind, key, path, durationMs)
	return err
}

// GetArtifact looks up a content-addressed artifact by kind and key.
func (s *Store) GetArtifact(slug, kind, key string) (*Artifact, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a Artifact
	a.Kind, a.Key = kind, key
	err := s.db.QueryRow(`
		SELECT path, duration_ms, checksum FROM artifacts
		WHERE project_slug = ? AND kind = ? AND key = ?
	`, slug, kind, key).Scan(&a.Path, &a.DurationMs, &a.Checksum)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &a, true, nil
}

// ListArtifactKeys returns every artifact key currently stored for
// (slug, kind), as a set.
func (s *Store) ListArtifactKeys(slug, kind string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT key FROM artifacts WHERE project_slug = ? AND kind = ?`, slug, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = true
	}
	return keys, nil
}

// Progress returns the current progress row for (slug, step).
func (s *Store) Progress(slug, step string) (StepProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p StepProgress
	p.Step = step
	var status string
	err := s.db.QueryRow(`
		SELECT done, total, status FROM progress WHERE project_slug = ? AND step = ?
	`, slug, step).Scan(&p.Done, &p.Total, &status)
	if err == sql.ErrNoRows {
		return StepProgress{Step: step, Status: StepPending}, nil
	}
	if err != nil {
		return StepProgress{}, err
	}
	p.Status = StepStatus(status)
	return p, nil
}

// SetProgress writes (done, total, status) for (slug, step). running ->
// running is a legal transition on resume.
func (s *Store) SetProgress(slug, step string, done, total int, status StepStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO progress (project_slug, step, done, total, status) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_slug, step) DO UPDATE SET
			done = excluded.done, total = excluded.total, status = excluded.status
	`, slug, step, done, total, string(status))
	return err
}

// IncrementDone atomically bumps a step's done counter by one — the
// per-unit progress update the Orchestrator makes as each artifact lands.
func (s *Store) IncrementDone(slug, step string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE progress SET done = done + 1 WHERE project_slug = ? AND step = ?`, slug, step)
	return err
}

// ResetStep invalidates a step's progress (back to pending, done=0)
// without touching upstream content-addressed artifacts, which remain
// and are reused. Used to implement --force on a single step.
func (s *Store) ResetStep(slug, step string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE progress SET done = 0, total = 0, status = ? WHERE project_slug = ? AND step = ?
	`, string(StepPending), slug, step)
	return err
}

// AllProgress returns every step's progress for slug, in StepOrder.
func (s *Store) AllProgress(slug string) ([]StepProgress, error) {
	out := make([]StepProgress, 0, len(StepOrder))
	for _, step := range StepOrder {
		p, err := s.Progress(slug, step)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ListProjects returns every known project slug, most recent first.
func (s *Store) ListProjects() ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT slug, source_lang, target_lang, total_sentences, created_at
		FROM projects ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.Slug, &p.SourceLang, &p.TargetLang, &p.TotalSentences, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AddQuotaUsage adds chars to service's running total for the given
// month (format "2006-01"), resetting the counter when month has
// rolled over since the last recorded usage — the process-wide home
// for provider quota accounting, in place of a JSON sidecar file.
func (s *Store) AddQuotaUsage(service, month string, chars int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existingMonth string
	var used int
	err := s.db.QueryRow(`SELECT month, chars_used FROM quota_usage WHERE service = ?`, service).Scan(&existingMonth, &used)
	if err == sql.ErrNoRows {
		_, err = s.db.Exec(`INSERT INTO quota_usage (service, month, chars_used) VALUES (?, ?, ?)`, service, month, chars)
		return err
	}
	if err != nil {
		return err
	}
	if existingMonth != month {
		_, err = s.db.Exec(`UPDATE quota_usage SET month = ?, chars_used = ? WHERE service = ?`, month, chars, service)
		return err
	}
	_, err = s.db.Exec(`UPDATE quota_usage SET chars_used = chars_used + ? WHERE service = ?`, chars, service)
	return err
}

// QuotaUsage returns (month, chars_used) for service, or ("", 0) if
// nothing has been recorded yet.
func (s *Store) QuotaUsage(service string) (string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var month string
	var used int
	err := s.db.QueryRow(`SELECT month, chars_used FROM quota_usage WHERE service = ?`, service).Scan(&month, &used)
	if err == sql.ErrNoRows {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	return month, used, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
