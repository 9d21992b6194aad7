// Package buildinfo supplies the process build identity: build type, build
// id, and target OS. The three strings are resolved once, are immutable for
// the process lifetime, and appear in every crash diagnostic.
package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Set at build time via ldflags:
//   - goreleaser: -X tools.zach/dev/sigward/internal/buildinfo.buildType=release
//     -X tools.zach/dev/sigward/internal/buildinfo.buildID={{.Version}}
//   - make build: -X ...buildType=dev -X ...buildID=$(VERSION)
//
// When ldflags are not set (bare go build), [Resolve] reads the VCS info
// that Go embeds automatically, so dev builds get a useful identity without
// needing git at runtime.
var (
	buildType = "dev"
	buildID   = "unknown"
)

// Identity holds the three opaque build identity strings consulted by
// crash-path diagnostics.
type Identity struct {
	// Type is the build flavor, e.g. "release" or "dev".
	Type string
	// ID is the version or VCS stamp, e.g. "0.1.0" or "dev+1a2b3c4".
	ID string
	// OS is the target operating system the binary was built for.
	OS string
}

var (
	resolveOnce sync.Once
	resolved    Identity
)

// Resolve returns the process build identity. Ldflags values take
// precedence; otherwise the VCS revision and dirty state embedded by the Go
// toolchain are used to construct a "dev+<hash>" id. The result is computed
// once and cached.
func Resolve() Identity {
	resolveOnce.Do(func() {
		resolved = Identity{
			Type: buildType,
			ID:   resolveID(),
			OS:   runtime.GOOS,
		}
	})
	return resolved
}

// resolveID returns the build id string. If [buildID] was set via ldflags at
// build time it is returned as-is; otherwise VCS revision and dirty state
// are used to construct a "dev+<hash>" tag.
func resolveID() string {
	if buildID != "unknown" {
		return buildID
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return buildID
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return buildID
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}
