// Package version records the build identity stamped in at link time.
//
// Release builds pass the values with -ldflags:
//
//	go build -ldflags "\
//	  -X github.com/pricetrack/pricetrack/internal/version.Version=$(git describe --tags) \
//	  -X github.com/pricetrack/pricetrack/internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/pricetrack/pricetrack/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped binaries report "dev".
package version

// Set via ldflags; the defaults mark a local build.
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// String renders the full build identity,
// e.g. "0.3.1 (9f2c1d4) built 2025-11-02T09:14:33Z".
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
