package taxonomy

import "sync"

// Process-wide default taxonomy and initialization guard. The taxonomy is
// immutable after load, so handing the same instance to every reader is
// safe without further locking.
var (
	defaultTaxonomy *Taxonomy
	defaultOnce     sync.Once
)

// Default returns the process-wide taxonomy instance. Loads the embedded
// model on first call if InitDefault was never invoked.
func Default() *Taxonomy {
	defaultOnce.Do(func() {
		t, err := LoadEmbedded()
		if err != nil {
			// The embedded model ships with the binary; failing to parse
			// it is a build defect, not a runtime condition.
			panic("taxonomy: embedded model failed to parse: " + err.Error())
		}
		defaultTaxonomy = t
	})
	return defaultTaxonomy
}

// InitDefault installs a custom taxonomy as the process-wide default.
// Must be called before any call to Default() to take effect. Safe for
// concurrent use but only the first initialization wins.
func InitDefault(t *Taxonomy) {
	defaultOnce.Do(func() {
		defaultTaxonomy = t
	})
}

// ResetDefault clears the default for testing purposes.
// Not thread-safe; tests only.
func ResetDefault() {
	defaultOnce = sync.Once{}
	defaultTaxonomy = nil
}
