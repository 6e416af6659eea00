package mojang

import (
	"encoding/json"
	"time"
)

// Release types published in the manifest.
const (
	TypeRelease  = "release"
	TypeSnapshot = "snapshot"
	TypeOldBeta  = "old_beta"
	TypeOldAlpha = "old_alpha"
)

// VersionManifest is the top-level launcher manifest listing every release.
//
// Versions keeps the publisher's order; it is never re-sorted.
// A manifest returned by [Client.FetchManifest] has passed validation and
// should be treated as immutable.
type VersionManifest struct {
	Latest   Latest           `json:"latest"`
	Versions []VersionSummary `json:"versions"`
}

// Latest points at the newest release on each channel by id.
type Latest struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

// VersionSummary is one manifest entry pointing at a full version document.
type VersionSummary struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	URL             string    `json:"url"`
	Time            time.Time `json:"time"`
	ReleaseTime     time.Time `json:"releaseTime"`
	SHA1            string    `json:"sha1,omitempty"`
	ComplianceLevel int       `json:"complianceLevel,omitempty"`
}

// Find returns the summary with the given id.
func (m *VersionManifest) Find(id string) (VersionSummary, bool) {
	for _, v := range m.Versions {
		if v.ID == id {
			return v, true
		}
	}
	return VersionSummary{}, false
}

// VersionDocument is the full descriptor of a single release.
//
// Only the fields the launcher needs to locate artifacts are typed; the
// argument and logging blocks are kept as raw JSON. Unknown fields are ignored.
type VersionDocument struct {
	ID                     string              `json:"id"`
	Type                   string              `json:"type"`
	MainClass              string              `json:"mainClass"`
	InheritsFrom           string              `json:"inheritsFrom,omitempty"`
	Time                   time.Time           `json:"time"`
	ReleaseTime            time.Time           `json:"releaseTime"`
	MinimumLauncherVersion int                 `json:"minimumLauncherVersion,omitempty"`
	ComplianceLevel        int                 `json:"complianceLevel,omitempty"`
	Assets                 string              `json:"assets,omitempty"`
	AssetIndex             *AssetIndex         `json:"assetIndex,omitempty"`
	Downloads              map[string]Download `json:"downloads,omitempty"`
	Libraries              []Library           `json:"libraries"`
	Arguments              json.RawMessage     `json:"arguments,omitempty"`
	MinecraftArguments     string              `json:"minecraftArguments,omitempty"`
	JavaVersion            *JavaVersion        `json:"javaVersion,omitempty"`
	Logging                json.RawMessage     `json:"logging,omitempty"`
}

// AssetIndex references the asset index document of a release.
type AssetIndex struct {
	ID        string `json:"id"`
	SHA1      string `json:"sha1"`
	Size      int64  `json:"size"`
	TotalSize int64  `json:"totalSize"`
	URL       string `json:"url"`
}

// Download is a downloadable file with its checksum.
type Download struct {
	Path string `json:"path,omitempty"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Library is a classpath or native dependency of a release.
// Name is a Maven coordinate (group:artifact:version[:classifier]).
type Library struct {
	Name      string            `json:"name"`
	URL       string            `json:"url,omitempty"`
	Downloads *LibraryDownloads `json:"downloads,omitempty"`
	Natives   map[string]string `json:"natives,omitempty"`
	Rules     []Rule            `json:"rules,omitempty"`
	Extract   json.RawMessage   `json:"extract,omitempty"`
}

// LibraryDownloads lists the main artifact and native classifiers of a library.
type LibraryDownloads struct {
	Artifact    *Download           `json:"artifact,omitempty"`
	Classifiers map[string]Download `json:"classifiers,omitempty"`
}

// Rule restricts a library or argument to matching platforms or features.
type Rule struct {
	Action   string          `json:"action"`
	OS       *OSRule         `json:"os,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}

// OSRule matches an operating system.
type OSRule struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Arch    string `json:"arch,omitempty"`
}

// JavaVersion is the Java runtime a release requires.
type JavaVersion struct {
	Component    string `json:"component"`
	MajorVersion int    `json:"majorVersion"`
}
