package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return "aurora " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// UserAgent identifies aurora on outbound HTTP requests.
func UserAgent() string {
	return "aurora/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
