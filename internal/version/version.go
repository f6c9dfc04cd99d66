package version

// Version is set at build time with -ldflags "-X .../internal/version.Version=v0.4.0".
var Version = "main"

func GetVersion() string {
	return Version
}
