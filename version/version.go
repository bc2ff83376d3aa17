package version

// Version components
const (
	Maj = "0"
	Min = "9"
	Fix = "0"

	// EngineVer is bumped on state-breaking changes of the trading core.
	EngineVer = 2
)

var (
	// Must be a string because scripts like dist.sh read this file.
	Version = "0.9.0"

	// GitCommit is the current HEAD set using ldflags.
	GitCommit string
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}
