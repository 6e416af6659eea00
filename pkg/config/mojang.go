package config

import (
	"github.com/spf13/viper"

	errs "github.com/matzehuels/mcmeta/pkg/errors"
	"github.com/matzehuels/mcmeta/pkg/integrations/mojang"
)

// Mojang holds the settings of the launcher metadata client.
type Mojang struct {
	// ManifestURL is the version manifest endpoint.
	// Overridden by MCMETA_MOJANG_MANIFEST_URL.
	ManifestURL string `mapstructure:"manifest_url" toml:"manifest_url"`
}

// LoadMojang reads the client settings from the environment, falling back to
// [mojang.DefaultManifestURL]. An empty variable counts as unset.
func LoadMojang() (*Mojang, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix + "_MOJANG")
	v.AutomaticEnv()
	v.SetDefault("manifest_url", mojang.DefaultManifestURL)

	m := &Mojang{ManifestURL: v.GetString("manifest_url")}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that the manifest URL is an absolute http(s) URL.
func (m *Mojang) Validate() error {
	if err := errs.ValidateURL(m.ManifestURL); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "mojang.manifest_url")
	}
	return nil
}

// Options converts the settings into client options.
func (m *Mojang) Options() []mojang.Option {
	return []mojang.Option{mojang.WithManifestURL(m.ManifestURL)}
}
