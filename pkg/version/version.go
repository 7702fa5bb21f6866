package version

import "fmt"

// Name is reported to MCP clients as the server name.
const Name = "askuser-bot"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build metadata served by the ops endpoint.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func Get() Info {
	return Info{Name: Name, Version: Version, Commit: Commit, BuildTime: BuildTime}
}

func String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", Name, Version, Commit, BuildTime)
}
