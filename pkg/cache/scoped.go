package cache

// ScopedKeyer wraps a Keyer with a prefix so entries fetched from different
// manifest mirrors never share a key.
//
// Example usage:
//
//	mirror := NewScopedKeyer(NewDefaultKeyer(), "mirror:"+Hash([]byte(url))[:12]+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ManifestKey generates a prefixed manifest key.
func (k *ScopedKeyer) ManifestKey(manifestURL string) string {
	return k.prefix + k.inner.ManifestKey(manifestURL)
}

// VersionKey generates a prefixed version key.
func (k *ScopedKeyer) VersionKey(id string) string {
	return k.prefix + k.inner.VersionKey(id)
}

// ArchiveKey generates a prefixed archive key.
func (k *ScopedKeyer) ArchiveKey(archiveURL string) string {
	return k.prefix + k.inner.ArchiveKey(archiveURL)
}
