package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one backend without seeing each other's entries.
//
//	staging := NewScopedKeyer(NewDefaultKeyer(), "staging:")
//	prod := NewScopedKeyer(NewDefaultKeyer(), "prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer falls back
// to [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(requestHash, engine string) string {
	return k.prefix + k.inner.LayoutKey(requestHash, engine)
}

// DocumentKey generates a prefixed document key.
func (k *ScopedKeyer) DocumentKey(id string) string {
	return k.prefix + k.inner.DocumentKey(id)
}
