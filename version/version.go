package version

var (
	// Version can also be set through tag release at build time with
	// -ldflags "-X github.com/AvaProtocol/bot-migrator/version.semver=..."
	semver   = "12.26.0"
	revision = "unknown"
)

// Get return the version. Every migration run targets this version.
func Get() string {
	return semver
}

func Commit() string {
	return revision
}
