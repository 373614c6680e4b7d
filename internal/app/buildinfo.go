package app

// Build information populated via -ldflags at build time.
var (
	// BuildVersion is the semantic version of the built binary.
	BuildVersion = "0.1.0-dev"
	// BuildCommit is the VCS commit SHA associated with the build.
	BuildCommit = "unknown"
)

// Version renders the build information for --version output.
func Version() string {
	return BuildVersion + " (" + BuildCommit + ")"
}
