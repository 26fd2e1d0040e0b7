// Package gitsource keeps local working copies of git deck sources.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/conorfennell/taxtutor/internal/logger"
)

// Sync clones the repository at url into localPath if it is not there yet,
// or pulls the latest changes if it is.
func Sync(ctx context.Context, log *logger.Logger, url, localPath string) error {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("url", url, "path", localPath)

	_, err := os.Stat(localPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info("cloning deck repository")
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return fmt.Errorf("failed to create clone directory for %s: %w", url, err)
		}
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{URL: url})
		if err != nil {
			_ = os.RemoveAll(localPath)
			return fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	log.Debug("pulling deck repository")
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
	}
	err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
	}
	return nil
}

// LocalPath maps a repository URL to a directory below baseDir.
// It understands http(s) and ssh URLs as well as scp-like "user@host:path"
// forms. Local paths and file URLs map to a directory named after their
// last path element below baseDir/local.
func LocalPath(baseDir, repoURL string) (string, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return "", errors.New("empty git URL")
	}

	if u, err := url.Parse(repoURL); err == nil && u.Scheme != "" && u.Host != "" {
		switch u.Scheme {
		case "http", "https", "ssh", "git":
			return join(baseDir, u.Hostname(), u.Path)
		}
	}

	if user, rest, ok := strings.Cut(repoURL, "@"); ok && user != "" {
		if host, path, ok := strings.Cut(rest, ":"); ok && host != "" && path != "" {
			return join(baseDir, host, path)
		}
	}

	path := strings.TrimPrefix(repoURL, "file://")
	if filepath.IsAbs(path) || strings.HasPrefix(path, ".") {
		name := strings.TrimSuffix(filepath.Base(filepath.Clean(path)), ".git")
		if name != "" && name != "." && name != string(filepath.Separator) {
			return filepath.Join(baseDir, "local", name), nil
		}
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}

func join(baseDir, host, path string) (string, error) {
	path = strings.Trim(strings.TrimSuffix(path, ".git"), "/")
	if path == "" || strings.Contains(path, "..") {
		return "", fmt.Errorf("could not derive a repository path from %s/%s", host, path)
	}
	return filepath.Join(baseDir, host, filepath.FromSlash(path)), nil
}
