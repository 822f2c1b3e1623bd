package devserver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the content the development server answers lookups from.
type Catalog struct {
	Translations map[string]string `yaml:"translations"`
	Fragments    map[string]string `yaml:"fragments"`
	Static       map[string]string `yaml:"static"`
}

const defaultCatalog = `
translations:
  "Socket Error": "Socket Error"
  "Error Message:": "Error Message:"
  "Failed to execute function safely: ": "Failed to execute function safely: "
  "item": "item"
  "items": "items"
fragments:
  index: |
    <h2>wireui</h2>
    <p>Connected to the development server.</p>
    <script src="/static/clock.js"></script>
    <script>console.log("index panel loaded")</script>
  help: |
    <p>Press <b>r</b> to reload this panel.</p>
static:
  clock.js: |
    window.loadedAt = new Date().toISOString();
    console.info("clock loaded", window.loadedAt);
`

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog([]byte(defaultCatalog))
	if err != nil {
		panic(err)
	}
	return c
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Translations == nil {
		c.Translations = make(map[string]string)
	}
	if c.Fragments == nil {
		c.Fragments = make(map[string]string)
	}
	if c.Static == nil {
		c.Static = make(map[string]string)
	}
	return &c, nil
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// Translate returns the catalog text for key, or key itself.
func (c *Catalog) Translate(key string) string {
	if text, ok := c.Translations[key]; ok {
		return text
	}
	return key
}

// TranslatePlural picks singular for a count of one and plural otherwise.
func (c *Catalog) TranslatePlural(singular, plural string, n int) string {
	if n == 1 {
		return c.Translate(singular)
	}
	return c.Translate(plural)
}

func (c *Catalog) Fragment(key string) (string, bool) {
	markup, ok := c.Fragments[key]
	return markup, ok
}
