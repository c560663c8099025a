package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	defaultClientVersion = "1.0"
	upToDateMessage      = "You have the latest version"
	updateScript         = "// Updated code"
)

// canonicalVersion turns "1.2" or "v1.2" into the "v1.2" form semver expects.
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// CompareVersions returns -1, 0, or +1 as a is lower than, equal to, or higher than b.
// An invalid version is lower than every valid one; two invalid versions are equal.
func CompareVersions(a, b string) int {
	return semver.Compare(canonicalVersion(a), canonicalVersion(b))
}

type updateAvailableResponse struct {
	Success         bool     `json:"success"`
	UpdateAvailable bool     `json:"updateAvailable"`
	NeedsUpdate     bool     `json:"needsUpdate"`
	CurrentVersion  string   `json:"currentVersion"`
	MinVersion      string   `json:"minVersion"`
	UserVersion     string   `json:"userVersion"`
	DownloadURL     string   `json:"downloadUrl"`
	GithubRelease   string   `json:"githubRelease"`
	Changelog       []string `json:"changelog"`
	Size            string   `json:"size"`
	ReleaseDate     string   `json:"releaseDate"`
	Critical        bool     `json:"critical"`
	Message         string   `json:"message"`
	Timestamp       string   `json:"timestamp"`
}

type upToDateResponse struct {
	Success         bool   `json:"success"`
	UpdateAvailable bool   `json:"updateAvailable"`
	Message         string `json:"message"`
	CurrentVersion  string `json:"currentVersion"`
	UserVersion     string `json:"userVersion"`
	Timestamp       string `json:"timestamp"`
}

// handleVersion answers an update check for the client version in ?v=.
// A client below min_version is told the update is critical.
func (a *API) handleVersion(w http.ResponseWriter, r *http.Request) {
	userVersion := r.URL.Query().Get("v")
	if userVersion == "" {
		userVersion = defaultClientVersion
	}
	now := a.clock.Now().UTC().Format(time.RFC3339)
	u := a.update

	if CompareVersions(userVersion, u.CurrentVersion) >= 0 {
		a.writeJSON(w, http.StatusOK, upToDateResponse{
			Success:         true,
			UpdateAvailable: false,
			Message:         upToDateMessage,
			CurrentVersion:  u.CurrentVersion,
			UserVersion:     userVersion,
			Timestamp:       now,
		})
		return
	}

	critical := u.Critical
	if u.MinVersion != "" && CompareVersions(userVersion, u.MinVersion) < 0 {
		critical = true
	}
	changelog := u.Changelog
	if changelog == nil {
		changelog = []string{}
	}
	a.writeJSON(w, http.StatusOK, updateAvailableResponse{
		Success:         true,
		UpdateAvailable: true,
		NeedsUpdate:     true,
		CurrentVersion:  u.CurrentVersion,
		MinVersion:      u.MinVersion,
		UserVersion:     userVersion,
		DownloadURL:     u.DownloadURL,
		GithubRelease:   u.ReleaseURL,
		Changelog:       changelog,
		Size:            u.SizeMB,
		ReleaseDate:     u.ReleaseDate,
		Critical:        critical,
		Message:         u.Message,
		Timestamp:       now,
	})
}

type downloadResponse struct {
	Version string            `json:"version"`
	Files   map[string]string `json:"files"`
}

func (a *API) handleDownload(w http.ResponseWriter, _ *http.Request) {
	manifest, err := json.MarshalIndent(map[string]string{"version": a.update.CurrentVersion}, "", "  ")
	if err != nil {
		http.Error(w, "building manifest", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, downloadResponse{
		Version: a.update.CurrentVersion,
		Files: map[string]string{
			"manifest.json": string(manifest),
			"update.js":     updateScript,
		},
	})
}
