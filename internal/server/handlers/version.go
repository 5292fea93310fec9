package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
)

// Build metadata, set from main via SetVersionInfo.
var (
	AppVersion   = "dev"
	AppCommit    = "unknown"
	AppBuildDate = "unknown"
	appName      string
)

func SetVersionInfo(version, commit, buildDate string) {
	AppVersion = version
	AppCommit = commit
	AppBuildDate = buildDate
}

// SetAppName overrides the executable name reported by /version.
func SetAppName(name string) {
	appName = name
}

// VersionResponse is the /version payload.
type VersionResponse struct {
	App struct {
		Name      string `json:"name"`
		Version   string `json:"version"`
		Commit    string `json:"git_commit"`
		BuildDate string `json:"build_date"`
		GoVersion string `json:"go_version"`
	} `json:"app"`
	Dependencies struct {
		Gofulmen string `json:"gofulmen"`
		Crucible string `json:"crucible"`
	} `json:"dependencies"`
	Runtime struct {
		Platform      string `json:"platform"`
		NumCPU        int    `json:"num_cpu"`
		NumGoroutines int    `json:"num_goroutines"`
	} `json:"runtime"`
}

func reportedName() string {
	if appName != "" {
		return appName
	}
	if len(os.Args) > 0 && os.Args[0] != "" {
		return filepath.Base(os.Args[0])
	}
	return "unknown"
}

func VersionHandler(w http.ResponseWriter, _ *http.Request) {
	var resp VersionResponse
	resp.App.Name = reportedName()
	resp.App.Version = AppVersion
	resp.App.Commit = AppCommit
	resp.App.BuildDate = AppBuildDate
	resp.App.GoVersion = runtime.Version()

	deps := crucible.GetVersion()
	resp.Dependencies.Gofulmen = deps.Gofulmen
	resp.Dependencies.Crucible = deps.Crucible

	resp.Runtime.Platform = runtime.GOOS + "/" + runtime.GOARCH
	resp.Runtime.NumCPU = runtime.NumCPU()
	resp.Runtime.NumGoroutines = runtime.NumGoroutine()

	writeJSON(w, resp)
}
