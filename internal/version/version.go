package version

import (
	"os/exec"
	"strings"
)

var (
	Version = "0.3.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// Resolve returns the version string, appending a git-derived suffix when
// the binary runs from a source checkout whose HEAD is not a release tag.
func Resolve() string {
	return resolveVersion(Version, runGit)
}

func resolveVersion(base string, git func(...string) (string, error)) string {
	if base == "" {
		base = "0.0.0"
	}

	if _, err := git("rev-parse", "--git-dir"); err != nil {
		return base
	}
	if _, err := git("describe", "--tags", "--exact-match"); err == nil {
		return base
	}

	desc, err := git("describe", "--tags", "--dirty", "--always")
	if err != nil {
		return base
	}
	desc = strings.TrimPrefix(desc, "v"+base+"-")
	return base + "-" + desc
}

func runGit(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
