// Package version holds build-time constants shared by the client and
// daemon binaries.
package version

// Version is overridden at build time via -ldflags.
var Version = "0.1.0-dev"

// DefaultConfig is installed by `swww-daemon --installconfig`.
const DefaultConfig = `# swww-daemon configuration
format = ""
namespace = ""
no_cache = false
layer = "background"
debug = false
debug_http = false
`
