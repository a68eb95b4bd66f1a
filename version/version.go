package version

// Build information (injected via ldflags - must NOT have default values)
var (
	Version   string
	GitSHA    string
	BuildDate string
)

// String is Version, or "dev" for an unstamped build, with the short SHA
// appended when known.
func String() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if len(GitSHA) >= 7 {
		v += "-" + GitSHA[:7]
	}
	return v
}
