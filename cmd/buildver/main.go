// Package main prints the build identity strings injected into
// [tools.zach/dev/sigward/internal/buildinfo] via ldflags. Cross-platform
// replacement for a Unix-only git describe + sed pipeline in the Makefile.
//
// By default the build id is printed; -type prints the build type instead.
//
// Build id format depends on git state:
//
//	No tags, clean:     0.0.0-dev+05ffee5
//	No tags, dirty:     0.0.0-dev+05ffee5.dirty
//	On tag v0.1.0:      0.1.0
//	Dirty tag:          0.1.0-dirty
//	3 past v0.1.0:      0.1.0-dev.3+g1234567
//	Same but dirty:     0.1.0-dev.3+g1234567.dirty
//
// The build type is "release" only for a clean build on an exact tag,
// otherwise "dev".
package main

import (
	"flag"
	"fmt"
	"os/exec"
	"strings"
)

// defaultBase is the version prefix used when the repository has no
// version tags yet.
const defaultBase = "0.0.0"

func main() {
	printType := flag.Bool("type", false, "Print the build type instead of the build id")
	flag.Parse()

	if *printType {
		fmt.Print(buildType())
		return
	}
	fmt.Print(buildID())
}

// buildID assembles a SemVer build id string by querying git state. It first
// attempts git describe against v-prefixed tags; if no tags exist it falls
// back to a 0.0.0-dev+<hash> format.
func buildID() string {
	// Try git describe with version tags
	if out, err := exec.Command("git", "describe", "--tags", "--match", "v*", "--dirty").Output(); err == nil {
		return formatTaggedVersion(strings.TrimSpace(string(out)))
	}

	// No version tags — build from commit hash
	out, err := exec.Command("git", "rev-parse", "--short=7", "HEAD").Output()
	if err != nil {
		return defaultBase + "-dev"
	}
	hash := strings.TrimSpace(string(out))

	if isDirty() {
		return fmt.Sprintf("%s-dev+%s.dirty", defaultBase, hash)
	}
	return fmt.Sprintf("%s-dev+%s", defaultBase, hash)
}

// buildType returns "release" for a clean build on an exact version tag and
// "dev" for everything else.
func buildType() string {
	out, err := exec.Command("git", "describe", "--tags", "--match", "v*", "--exact-match").Output()
	if err != nil || strings.TrimSpace(string(out)) == "" {
		return "dev"
	}
	if isDirty() {
		return "dev"
	}
	return "release"
}

// formatTaggedVersion converts a git describe output (e.g. "v0.1.0-3-g1234567-dirty")
// into a clean SemVer string with optional dev/dirty suffixes. The "-dirty" flag
// and "v" prefix are stripped, and the <N>-g<hash> portion is reformatted as
// "-dev.<N>+g<hash>".
func formatTaggedVersion(desc string) string {
	dirty := strings.HasSuffix(desc, "-dirty")
	clean := strings.TrimSuffix(desc, "-dirty")
	clean = strings.TrimPrefix(clean, "v")

	// Try to find -N-gHASH suffix (commits past tag).
	// git describe format: <tag>-<N>-g<abbreviated-hash>
	lastDash := strings.LastIndex(clean, "-")
	if lastDash > 0 {
		hash := clean[lastDash+1:]
		rest := clean[:lastDash]
		secondLastDash := strings.LastIndex(rest, "-")
		if secondLastDash > 0 && strings.HasPrefix(hash, "g") {
			n := rest[secondLastDash+1:]
			tag := rest[:secondLastDash]
			meta := hash
			if dirty {
				meta += ".dirty"
			}
			return fmt.Sprintf("%s-dev.%s+%s", tag, n, meta)
		}
	}

	// Exact tag
	if dirty {
		return clean + "-dirty"
	}
	return clean
}

// isDirty reports whether the git working tree has uncommitted changes
// by checking the output of git status --porcelain.
func isDirty() bool {
	out, err := exec.Command("git", "status", "--porcelain").Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(out))) > 0
}
