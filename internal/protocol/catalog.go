package protocol

import (
	"fmt"
	"os"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Catalog struct {
	mu        sync.RWMutex
	protocols map[string]Protocol
}

// NewCatalog returns a catalog holding the built-in protocols.
func NewCatalog() *Catalog {
	return &Catalog{
		protocols: map[string]Protocol{
			HamstringStretch.Name: HamstringStretch,
			ShoulderFlexion.Name:  ShoulderFlexion,
		},
	}
}

func (c *Catalog) Get(name string) (Protocol, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.protocols[name]
	if !ok {
		return Protocol{}, fmt.Errorf("%w: %s", ErrUnknownProtocol, name)
	}
	return p, nil
}

// Add validates p and stores it, replacing a protocol with the same name.
func (c *Catalog) Add(p Protocol) error {
	if err := p.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.protocols[p.Name] = p
	return nil
}

func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.protocols))
	for name := range c.protocols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) List() []Protocol {
	names := c.Names()

	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]Protocol, 0, len(names))
	for _, name := range names {
		list = append(list, c.protocols[name])
	}
	return list
}

type catalogFile struct {
	Protocols []Protocol `yaml:"protocols"`
}

// LoadCatalog returns the built-in protocols merged with the ones defined in the
// YAML file at path. An empty path gives the built-ins only.
//
//	protocols:
//	  - name: calf_stretch_long
//	    title: Calf stretch (long hold)
//	    kind: hold
//	    sides: [left_leg, right_leg]
//	    total_sets: 2
//	    duration: 45s
func LoadCatalog(path string) (*Catalog, error) {
	catalog := NewCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading protocols file %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing protocols file %s: %w", path, err)
	}

	for _, p := range file.Protocols {
		if err := catalog.Add(p); err != nil {
			return nil, fmt.Errorf("protocols file %s: %w", path, err)
		}
		log.Debugf("loaded protocol [%s] from %s", p.Name, path)
	}

	return catalog, nil
}
