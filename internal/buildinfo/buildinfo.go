// Package buildinfo carries version identifiers stamped at build time via
// -ldflags "-X paneplan/internal/buildinfo.Version=...".
package buildinfo

var (
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

// Info returns the stamped identifiers for the debug endpoint.
func Info() map[string]string {
    return map[string]string{
        "version": Version,
        "commit":  Commit,
        "builtAt": BuiltAt,
    }
}
