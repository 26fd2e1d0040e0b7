// Package decksync reconciles the flashcards imported from deck sources with
// the decks currently on disk or in git.
package decksync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/taxtutor/internal/cardhash"
	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/gitsource"
	"github.com/conorfennell/taxtutor/internal/logger"
	"github.com/conorfennell/taxtutor/internal/parser"
)

// ErrUnknownSource is returned when a source id is not registered.
var ErrUnknownSource = errors.New("unknown deck source")

// Store is the part of the application store the syncer mutates.
type Store interface {
	DeckSources() []domain.DeckSource
	Flashcards() []domain.Flashcard
	AddFlashcard(ctx context.Context, card domain.Flashcard) (domain.Flashcard, domain.Result)
	DeleteFlashcard(ctx context.Context, key domain.CardKey) domain.Result
	MarkDeckSourceScanned(ctx context.Context, id string, at time.Time) domain.Result
}

// FetchFunc brings the git repository at url up to date in localPath.
type FetchFunc func(ctx context.Context, log *logger.Logger, url, localPath string) error

type Options struct {
	// CacheDir holds the working copies of git sources.
	CacheDir string
	// Concurrency bounds the number of git sources fetched at once.
	Concurrency int
	Clock       func() time.Time
	Logger      *logger.Logger
	Fetch       FetchFunc
}

type Syncer struct {
	store       Store
	cacheDir    string
	concurrency int
	now         func() time.Time
	log         *logger.Logger
	fetch       FetchFunc
}

func New(store Store, opts Options) *Syncer {
	s := &Syncer{
		store:       store,
		cacheDir:    opts.CacheDir,
		concurrency: opts.Concurrency,
		now:         opts.Clock,
		log:         opts.Logger,
		fetch:       opts.Fetch,
	}
	if s.cacheDir == "" {
		s.cacheDir = "repos"
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.fetch == nil {
		s.fetch = gitsource.Sync
	}
	s.log = s.log.With("component", "decksync")
	return s
}

// Report summarises the reconciliation of one source.
type Report struct {
	SourceID string `json:"sourceId"`
	Path     string `json:"path"`
	Parsed   int    `json:"parsed"`
	Added    int    `json:"added"`
	Orphaned int    `json:"orphaned"`
	Skipped  int    `json:"skipped"`
	Err      error  `json:"-"`
}

// Failure returns the error message, or "" when the source synced cleanly.
func (r Report) Failure() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// SyncAll fetches every git source concurrently and then reconciles all
// sources in registration order. A failing source does not stop the others;
// its report carries the error.
func (s *Syncer) SyncAll(ctx context.Context) ([]Report, error) {
	sources := s.store.DeckSources()
	if len(sources) == 0 {
		s.log.Info("no deck sources configured")
		return nil, nil
	}

	dirs, fetchErrs := s.fetchAll(ctx, sources)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reports := make([]Report, len(sources))
	for i, src := range sources {
		if fetchErrs[i] != nil {
			reports[i] = Report{SourceID: src.ID, Path: src.Path, Err: fetchErrs[i]}
			s.log.Error("failed to fetch deck source", "id", src.ID, "path", src.Path, "error", fetchErrs[i])
			continue
		}
		reports[i] = s.reconcile(ctx, src, dirs[i])
	}
	return reports, nil
}

// SyncSource fetches and reconciles the source with the given id.
func (s *Syncer) SyncSource(ctx context.Context, id string) (Report, error) {
	for _, src := range s.store.DeckSources() {
		if src.ID != id {
			continue
		}
		dir, err := s.resolve(ctx, src)
		if err != nil {
			return Report{SourceID: src.ID, Path: src.Path, Err: err}, nil
		}
		return s.reconcile(ctx, src, dir), nil
	}
	return Report{}, fmt.Errorf("%w: %s", ErrUnknownSource, id)
}

func (s *Syncer) fetchAll(ctx context.Context, sources []domain.DeckSource) ([]string, []error) {
	dirs := make([]string, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			dirs[i], errs[i] = s.resolve(gctx, src)
			return nil
		})
	}
	_ = g.Wait()
	return dirs, errs
}

// resolve returns the directory holding the source's decks, fetching git
// sources first.
func (s *Syncer) resolve(ctx context.Context, src domain.DeckSource) (string, error) {
	switch src.Type {
	case domain.SourceLocal:
		return src.Path, nil
	case domain.SourceGit:
		dir, err := gitsource.LocalPath(s.cacheDir, src.Path)
		if err != nil {
			return "", err
		}
		if err := s.fetch(ctx, s.log, src.Path, dir); err != nil {
			return "", err
		}
		return dir, nil
	default:
		return "", fmt.Errorf("unsupported source type %q", src.Type)
	}
}

type parsedEntry struct {
	entry domain.DeckEntry
	hash  string
}

func (s *Syncer) reconcile(ctx context.Context, src domain.DeckSource, dir string) Report {
	log := s.log.With("id", src.ID, "path", src.Path)
	report := Report{SourceID: src.ID, Path: src.Path}

	var entries []parsedEntry
	var parseErrs []error
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		fileEntries, err := parser.ParseFile(path)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("parsing %s: %w", path, err))
			return nil
		}
		for _, e := range fileEntries {
			entries = append(entries, parsedEntry{entry: e, hash: cardhash.Hash(e)})
		}
		return nil
	})
	if walkErr != nil {
		report.Err = fmt.Errorf("failed to walk %s: %w", dir, walkErr)
		log.Error("failed to walk deck source", "error", walkErr)
		return report
	}
	report.Parsed = len(entries)

	existing := make(map[string]bool)
	for _, c := range s.store.Flashcards() {
		if c.SourceID == src.ID {
			existing[c.SourceKey] = true
		}
	}

	now := s.now()
	found := make(map[string]bool, len(entries))
	for _, pe := range entries {
		if found[pe.hash] {
			continue
		}
		found[pe.hash] = true
		if existing[pe.hash] {
			continue
		}
		card, err := domain.NewFlashcard(pe.entry.Front, pe.entry.Back, pe.entry.Tag, now)
		if err != nil {
			report.Skipped++
			log.Warn("skipping deck entry", "front", pe.entry.Front, "error", err)
			continue
		}
		card.SourceID = src.ID
		card.SourceKey = pe.hash
		s.store.AddFlashcard(ctx, card)
		report.Added++
	}

	// Entries of a file that failed to parse are unknown, so nothing is
	// treated as orphaned.
	if len(parseErrs) > 0 {
		log.Warn("skipping orphan removal after parse errors", "errors", len(parseErrs))
	} else {
		for _, c := range s.store.Flashcards() {
			if c.SourceID == src.ID && !found[c.SourceKey] {
				if s.store.DeleteFlashcard(ctx, domain.ByID(c.ID)) == domain.Updated {
					report.Orphaned++
				}
			}
		}
	}

	s.store.MarkDeckSourceScanned(ctx, src.ID, now)
	if len(parseErrs) > 0 {
		report.Err = errors.Join(parseErrs...)
	}

	log.Info("reconciliation complete",
		"parsed", report.Parsed,
		"added", report.Added,
		"orphaned", report.Orphaned,
		"skipped", report.Skipped,
		"errors", len(parseErrs),
	)
	return report
}
