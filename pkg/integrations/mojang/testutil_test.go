package mojang

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

var (
	testSHA1  = strings.Repeat("a", 40)
	testSHA1b = strings.Repeat("b", 40)
)

// versionJSON returns a valid version document for id.
func versionJSON(id string) string {
	return fmt.Sprintf(`{
  "id": %q,
  "type": "release",
  "mainClass": "net.minecraft.client.main.Main",
  "time": "2021-01-14T16:05:32+00:00",
  "releaseTime": "2021-01-14T16:05:32+00:00",
  "minimumLauncherVersion": 21,
  "complianceLevel": 1,
  "assets": "1.16",
  "assetIndex": {
    "id": "1.16",
    "sha1": %q,
    "size": 295417,
    "totalSize": 330604282,
    "url": "https://piston-meta.mojang.com/v1/packages/%s/1.16.json"
  },
  "downloads": {
    "client": {"sha1": %q, "size": 17547153, "url": "https://piston-data.mojang.com/v1/objects/%s/client.jar"}
  },
  "libraries": [
    {
      "name": "com.mojang:patchy:1.3.9",
      "downloads": {
        "artifact": {
          "path": "com/mojang/patchy/1.3.9/patchy-1.3.9.jar",
          "sha1": %q,
          "size": 23581,
          "url": "https://libraries.minecraft.net/com/mojang/patchy/1.3.9/patchy-1.3.9.jar"
        }
      }
    },
    {
      "name": "org.lwjgl:lwjgl:3.2.2:natives-linux",
      "rules": [{"action": "allow", "os": {"name": "linux"}}]
    }
  ],
  "arguments": {"game": ["--username", "${auth_player_name}"], "jvm": ["-cp", "${classpath}"]},
  "javaVersion": {"component": "jre-legacy", "majorVersion": 8}
}`, id, testSHA1, testSHA1, testSHA1b, testSHA1b, testSHA1)
}

// legacyVersionJSON returns a valid pre-1.13 style document for id.
func legacyVersionJSON(id string) string {
	return fmt.Sprintf(`{
  "id": %q,
  "type": "old_alpha",
  "mainClass": "net.minecraft.launchwrapper.Launch",
  "time": "2010-11-22T22:00:00+00:00",
  "releaseTime": "2010-11-22T22:00:00+00:00",
  "minecraftArguments": "${auth_player_name} ${auth_session}",
  "libraries": [{"name": "net.minecraft:launchwrapper:1.6"}]
}`, id)
}

// manifestJSON returns a valid manifest listing ids in order, with
// version URLs rooted at base. The first id is the latest release and the
// last the latest snapshot.
func manifestJSON(base string, ids ...string) string {
	entries := make([]string, len(ids))
	for i, id := range ids {
		typ := TypeRelease
		if i == len(ids)-1 && len(ids) > 1 {
			typ = TypeSnapshot
		}
		entries[i] = fmt.Sprintf(`{"id": %q, "type": %q, "url": "%s/v1/packages/%s/%s.json", "time": "2021-01-14T16:05:32+00:00", "releaseTime": "2021-01-14T16:05:32+00:00", "sha1": %q, "complianceLevel": 1}`,
			id, typ, base, testSHA1, id, testSHA1)
	}
	return fmt.Sprintf(`{"latest": {"release": %q, "snapshot": %q}, "versions": [%s]}`,
		ids[0], ids[len(ids)-1], strings.Join(entries, ",\n"))
}

type zipEntry struct {
	name string
	data string
	// stored writes the entry uncompressed; entries are deflated otherwise.
	stored bool
}

// zipBytes builds a zip archive holding entries in the given order.
func zipBytes(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		method := zip.Deflate
		if e.stored {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: method})
		if err != nil {
			t.Fatalf("create zip entry %s: %v", e.name, err)
		}
		if _, err := io.WriteString(w, e.data); err != nil {
			t.Fatalf("write zip entry %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// testClient returns a client whose scratch directories live in a fresh
// directory, which is returned for cleanup assertions.
func testClient(t *testing.T, manifestURL string, opts ...Option) (*Client, string) {
	t.Helper()
	root := t.TempDir()
	base := []Option{
		WithManifestURL(manifestURL),
		WithTempDir(root),
		WithLogger(log.New(io.Discard)),
	}
	return NewClient(append(base, opts...)...), root
}

// assertNoScratchDirs fails if anything is left under root.
func assertNoScratchDirs(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read temp root: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("temporary directories left behind: %v", names)
	}
}
