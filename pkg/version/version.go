// Package version derives the build identity reported in startup logs, the
// CLI --version flag, and the telemetry resource.
package version

import "runtime/debug"

// AppName names the binary in log lines and trace resources.
const AppName = "monument"

// commit is overridable with -ldflags "-X .../pkg/version.commit=<sha>" for
// builds without VCS metadata, e.g. container builds from a source tarball.
var commit string

// GitCommit is the short commit hash, or "dev" when nothing is known.
var GitCommit = shortCommit()

func shortCommit() string {
	c := commit
	if c == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
					break
				}
			}
		}
	}
	if c == "" {
		return "dev"
	}
	if len(c) > 8 {
		c = c[:8]
	}
	return c
}

// Full returns the "monument/<commit>" form used in startup logging.
func Full() string { return AppName + "/" + GitCommit }
