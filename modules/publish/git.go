package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/fsutil"
	"github.com/RoJaebl/portfolio/internal/proc"
)

// fallbackIdentity is used when git has no user configured, as on CI.
var fallbackIdentity = []string{
	"GIT_AUTHOR_NAME=sitepipe",
	"GIT_AUTHOR_EMAIL=sitepipe@localhost",
	"GIT_COMMITTER_NAME=sitepipe",
	"GIT_COMMITTER_EMAIL=sitepipe@localhost",
}

type gitRepo struct {
	dir string
	env []string
}

func (g *gitRepo) run(ctx context.Context, args ...string) (string, error) {
	out, err := proc.Run(ctx, proc.Cmd{Argv: append([]string{"git"}, args...), Dir: g.dir, Env: g.env})
	return strings.TrimSpace(string(out)), err
}

// publishGit replaces the content of the publish branch with files and
// pushes it. The clone in CacheDir is reused between runs.
func publishGit(ctx context.Context, input *Input, files []fsutil.Match) error {
	logger := ctxlog.FromContext(ctx)

	repoURL := input.Repo
	if repoURL == "" {
		url, err := (&gitRepo{}).run(ctx, "remote", "get-url", input.Remote)
		if err != nil {
			return fmt.Errorf("resolving remote %q: %w", input.Remote, err)
		}
		repoURL = url
	}

	repo := &gitRepo{dir: input.CacheDir}
	if err := prepareClone(ctx, repo, repoURL); err != nil {
		return err
	}
	if _, err := repo.run(ctx, "rev-parse", "--verify", "--quiet", "refs/remotes/origin/"+input.Branch); err == nil {
		if _, err := repo.run(ctx, "checkout", "-f", "-B", input.Branch, "origin/"+input.Branch); err != nil {
			return err
		}
	} else {
		// Pointing HEAD at a branch without commits makes the next commit a root.
		logger.Info("Creating publish branch", "branch", input.Branch)
		if _, err := repo.run(ctx, "symbolic-ref", "HEAD", "refs/heads/"+input.Branch); err != nil {
			return err
		}
	}

	if err := replaceTree(input.CacheDir, files); err != nil {
		return err
	}
	if _, err := repo.run(ctx, "add", "-A"); err != nil {
		return err
	}
	status, err := repo.run(ctx, "status", "--porcelain")
	if err != nil {
		return err
	}
	if status == "" {
		logger.Info("Nothing changed since last publish", "branch", input.Branch)
		return nil
	}

	if email, _ := repo.run(ctx, "config", "user.email"); email == "" {
		repo.env = fallbackIdentity
	}
	if _, err := repo.run(ctx, "commit", "-m", commitMessage(input, time.Now())); err != nil {
		return err
	}
	if _, err := repo.run(ctx, "push", "origin", input.Branch); err != nil {
		return err
	}
	logger.Info("Pushed publish branch", "repo", repoURL, "branch", input.Branch)
	return nil
}

func prepareClone(ctx context.Context, repo *gitRepo, repoURL string) error {
	if _, err := os.Stat(filepath.Join(repo.dir, ".git")); err == nil {
		_, err := repo.run(ctx, "fetch", "--prune", "origin")
		return err
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(repo.dir)), 0o755); err != nil {
		return err
	}
	_, err := (&gitRepo{}).run(ctx, "clone", repoURL, repo.dir)
	return err
}

// replaceTree removes everything in dir except .git, then copies files in.
func replaceTree(dir string, files []fsutil.Match) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return err
		}
		if err := fsutil.WriteFile(filepath.Join(dir, f.Rel), data); err != nil {
			return err
		}
	}
	return nil
}
