package mojang

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	errs "github.com/matzehuels/mcmeta/pkg/errors"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	manifestSchemaURL = "https://schemas.mcmeta.dev/version_manifest.schema.json"
	versionSchemaURL  = "https://schemas.mcmeta.dev/version.schema.json"
)

var (
	// Maven coordinate: group:artifact:version with an optional classifier.
	libraryNameRE = regexp.MustCompile(`^[^:\s]+:[^:\s]+:[^:\s]+(:[^:\s]+)?(@[a-z]+)?$`)
	sha1RE        = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

type compiledSchemas struct {
	manifest *jsonschema.Schema
	version  *jsonschema.Schema
}

var loadSchemas = sync.OnceValues(func() (*compiledSchemas, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	for url, name := range map[string]string{
		manifestSchemaURL: "schemas/version_manifest.schema.json",
		versionSchemaURL:  "schemas/version.schema.json",
	} {
		data, err := schemaFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add %s: %w", name, err)
		}
	}

	manifest, err := c.Compile(manifestSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}
	version, err := c.Compile(versionSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile version schema: %w", err)
	}
	return &compiledSchemas{manifest: manifest, version: version}, nil
})

// Violation is a single semantic problem found in a document.
type Violation struct {
	Field   string
	Message string
}

// ValidationErrors lists every violation found in a document.
// It is the cause of VALIDATION_FAILED errors raised by semantic checks.
type ValidationErrors []Violation

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, violation := range v {
		parts[i] = violation.Field + ": " + violation.Message
	}
	return strings.Join(parts, "; ")
}

func (v *ValidationErrors) add(field, format string, args ...any) {
	*v = append(*v, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v ValidationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// checkSchema validates the raw document from source against one of the
// embedded schemas and returns a classified error.
func checkSchema(source string, raw []byte, pick func(*compiledSchemas) *jsonschema.Schema) error {
	schemas, err := loadSchemas()
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "load document schemas")
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return errs.MalformedBody(source, raw, err)
	}
	if err := pick(schemas).Validate(inst); err != nil {
		return errs.Validation(source, err)
	}
	return nil
}

// Validate checks the semantic constraints of the manifest: absolute release
// URLs, unique ids, and latest pointers that reference listed releases.
func (m *VersionManifest) Validate() error {
	var problems ValidationErrors

	seen := make(map[string]int, len(m.Versions))
	for i, v := range m.Versions {
		field := fmt.Sprintf("versions[%d]", i)
		if v.ID == "" {
			problems.add(field+".id", "is required")
		} else if prev, dup := seen[v.ID]; dup {
			problems.add(field+".id", "duplicates versions[%d] (%q)", prev, v.ID)
		} else {
			seen[v.ID] = i
		}
		if v.Type == "" {
			problems.add(field+".type", "is required")
		}
		if err := errs.ValidateURL(v.URL); err != nil {
			problems.add(field+".url", "%s", errs.UserMessage(err))
		}
		if v.SHA1 != "" && !sha1RE.MatchString(v.SHA1) {
			problems.add(field+".sha1", "is not a sha1 digest")
		}
	}

	checkLatest := func(field, id string) {
		if id == "" {
			problems.add(field, "is required")
			return
		}
		if _, ok := seen[id]; !ok {
			problems.add(field, "references unknown version %q", id)
		}
	}
	checkLatest("latest.release", m.Latest.Release)
	checkLatest("latest.snapshot", m.Latest.Snapshot)

	return problems.err()
}

// Validate checks the semantic constraints of a version document: artifact
// URLs are absolute, library names are Maven coordinates, rules are well
// formed and launch arguments are present unless the document inherits them.
func (d *VersionDocument) Validate() error {
	var problems ValidationErrors

	if d.ID == "" {
		problems.add("id", "is required")
	}
	if d.Type == "" {
		problems.add("type", "is required")
	}
	if d.MainClass == "" {
		problems.add("mainClass", "is required")
	}
	if d.InheritsFrom == "" && len(d.Arguments) == 0 && d.MinecraftArguments == "" {
		problems.add("arguments", "either arguments or minecraftArguments is required")
	}

	if d.AssetIndex != nil {
		if d.AssetIndex.ID == "" {
			problems.add("assetIndex.id", "is required")
		}
		if err := errs.ValidateURL(d.AssetIndex.URL); err != nil {
			problems.add("assetIndex.url", "%s", errs.UserMessage(err))
		}
	}

	for name, dl := range d.Downloads {
		validateDownload(&problems, "downloads."+name, dl)
	}

	for i, lib := range d.Libraries {
		field := fmt.Sprintf("libraries[%d]", i)
		if !libraryNameRE.MatchString(lib.Name) {
			problems.add(field+".name", "%q is not a maven coordinate", lib.Name)
		}
		if lib.Downloads != nil {
			if lib.Downloads.Artifact != nil {
				validateDownload(&problems, field+".downloads.artifact", *lib.Downloads.Artifact)
			}
			for classifier, dl := range lib.Downloads.Classifiers {
				validateDownload(&problems, field+".downloads.classifiers."+classifier, dl)
			}
		}
		for j, rule := range lib.Rules {
			if rule.Action != "allow" && rule.Action != "disallow" {
				problems.add(fmt.Sprintf("%s.rules[%d].action", field, j), "must be allow or disallow, got %q", rule.Action)
			}
		}
	}

	return problems.err()
}

func validateDownload(problems *ValidationErrors, field string, dl Download) {
	if err := errs.ValidateURL(dl.URL); err != nil {
		problems.add(field+".url", "%s", errs.UserMessage(err))
	}
	if dl.SHA1 != "" && !sha1RE.MatchString(dl.SHA1) {
		problems.add(field+".sha1", "is not a sha1 digest")
	}
	if dl.Size < 0 {
		problems.add(field+".size", "must not be negative")
	}
}
