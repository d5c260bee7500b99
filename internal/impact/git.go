package impact

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// ChangedFiles lists the files git reports as changed in repoDir relative to base.
// An empty base compares the working tree with HEAD. When the diff fails, for
// example in a repository without commits, modified and untracked files are used.
func ChangedFiles(repoDir, base string) ([]string, error) {
	if base == "" {
		base = "HEAD"
	}

	cmd := exec.Command("git", "diff", "--name-only", base)
	cmd.Dir = repoDir
	output, err := cmd.Output()
	if err != nil {
		cmd = exec.Command("git", "ls-files", "--modified", "--others", "--exclude-standard")
		cmd.Dir = repoDir
		output, err = cmd.Output()
		if err != nil {
			return nil, fmt.Errorf("git changes in %s: %w", repoDir, err)
		}
	}

	var files []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		file := strings.TrimSpace(scanner.Text())
		if file == "" || seen[file] {
			continue
		}
		seen[file] = true
		files = append(files, file)
	}
	return files, scanner.Err()
}

// RemoteTrackingBranch returns the upstream of the current branch, such as "origin/main"
func RemoteTrackingBranch(repoDir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	cmd.Dir = repoDir

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("no remote tracking branch: %w", err)
	}

	branch := strings.TrimSpace(string(output))
	if branch == "" {
		return "", fmt.Errorf("current branch has no remote tracking branch")
	}
	return branch, nil
}
