package strategic

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed buckets.yaml
var bucketsYAML []byte

// Definition is one taxonomy bucket: a key, a sentence cap, and the query
// templates that fill it.
type Definition struct {
	Key       string   `yaml:"key"`
	Cap       int      `yaml:"cap"`
	Templates []string `yaml:"templates"`
}

// Taxonomy is the fixed bucket set plus the snapshot priority order.
type Taxonomy struct {
	Buckets          []Definition `yaml:"buckets"`
	SnapshotPriority []string     `yaml:"snapshot_priority"`
}

var taxonomy = mustLoadTaxonomy()

func mustLoadTaxonomy() Taxonomy {
	t, err := loadTaxonomy(bucketsYAML)
	if err != nil {
		panic(err)
	}
	return t
}

func loadTaxonomy(raw []byte) (Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Taxonomy{}, eris.Wrap(err, "strategic: parse taxonomy")
	}

	keys := make(map[string]struct{}, len(t.Buckets))
	for _, b := range t.Buckets {
		if b.Key == "" {
			return Taxonomy{}, eris.New("strategic: bucket with empty key")
		}
		if _, dup := keys[b.Key]; dup {
			return Taxonomy{}, eris.Errorf("strategic: duplicate bucket key %q", b.Key)
		}
		keys[b.Key] = struct{}{}
		if b.Cap < 1 {
			return Taxonomy{}, eris.Errorf("strategic: bucket %q has invalid cap %d", b.Key, b.Cap)
		}
		if len(b.Templates) == 0 {
			return Taxonomy{}, eris.Errorf("strategic: bucket %q has no templates", b.Key)
		}
	}
	for _, key := range t.SnapshotPriority {
		if _, ok := keys[key]; !ok {
			return Taxonomy{}, eris.Errorf("strategic: snapshot priority references unknown bucket %q", key)
		}
	}
	return t, nil
}

// BucketKeys returns the taxonomy keys in definition order.
func BucketKeys() []string {
	keys := make([]string, len(taxonomy.Buckets))
	for i, b := range taxonomy.Buckets {
		keys[i] = b.Key
	}
	return keys
}

// expandTemplate substitutes the {city}, {state}, and {zip} placeholders.
func expandTemplate(tmpl, city, state, zip string) string {
	r := strings.NewReplacer("{city}", city, "{state}", state, "{zip}", zip)
	return strings.Join(strings.Fields(r.Replace(tmpl)), " ")
}
