package cache

// Keyer produces cache keys for the artifacts statelayout stores.
type Keyer interface {
	// LayoutKey identifies a layout result by the hash of its engine
	// request and the engine that computed it.
	LayoutKey(requestHash, engine string) string

	// DocumentKey identifies a stored layout document by its ID.
	DocumentKey(id string) string
}

// DefaultKeyer hashes key components so keys have a fixed length.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) LayoutKey(requestHash, engine string) string {
	return hashKey("layout", requestHash, engine)
}

func (DefaultKeyer) DocumentKey(id string) string {
	return "doc:" + id
}
