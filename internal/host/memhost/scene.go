package memhost

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dshills/rigsync/internal/host"
)

// Scene is the YAML form of a Document.
type Scene struct {
	Active    string          `yaml:"active,omitempty"`
	Armatures []ArmatureScene `yaml:"armatures,omitempty"`
	Objects   []ObjectScene   `yaml:"objects,omitempty"`
}

// ArmatureScene is the YAML form of an Armature.
type ArmatureScene struct {
	Name       string         `yaml:"name"`
	UUID       string         `yaml:"uuid,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty"`
	Custom     map[string]any `yaml:"custom,omitempty"`
	EditBones  []host.Bone    `yaml:"edit_bones,omitempty"`
}

// ObjectScene is the YAML form of an Object.
type ObjectScene struct {
	Name string `yaml:"name"`
	UUID string `yaml:"uuid,omitempty"`
	Data string `yaml:"data,omitempty"`
	Mode string `yaml:"mode,omitempty"`
}

// LoadSceneFile reads a YAML scene from path.
func LoadSceneFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scene %s: %w", path, err)
	}
	defer f.Close()

	doc, err := LoadScene(f)
	if err != nil {
		return nil, fmt.Errorf("loading scene %s: %w", path, err)
	}
	return doc, nil
}

// LoadScene decodes a YAML scene and builds a Document from it.
func LoadScene(r io.Reader) (*Document, error) {
	var scene Scene
	if err := yaml.NewDecoder(r).Decode(&scene); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding scene: %w", err)
	}
	return scene.Build()
}

// Build creates a Document from the scene description.
func (s Scene) Build() (*Document, error) {
	doc := New()

	for _, as := range s.Armatures {
		if doc.Armatures().Get(as.Name) != nil {
			return nil, fmt.Errorf("duplicate armature %q", as.Name)
		}
		a := doc.AddArmature(as.Name, as.UUID)
		for k, v := range as.Attributes {
			if err := a.Set(k, v); err != nil {
				return nil, fmt.Errorf("armature %s attribute %s: %w", as.Name, k, err)
			}
		}
		a.SetCustomProperties(as.Custom)
		a.SetBones(as.EditBones)
	}

	for _, ob := range s.Objects {
		var data host.Datablock
		if ob.Data != "" {
			a := doc.Armatures().Get(ob.Data)
			if a == nil {
				return nil, fmt.Errorf("object %s references unknown armature %q", ob.Name, ob.Data)
			}
			data = a
		}
		o := doc.AddObject(ob.Name, ob.UUID, data)
		if ob.Mode != "" {
			mode, err := host.ParseMode(ob.Mode)
			if err != nil {
				return nil, fmt.Errorf("object %s: %w", ob.Name, err)
			}
			o.mode = mode
		}
	}

	if s.Active != "" {
		o := doc.Object(s.Active)
		if o == nil {
			return nil, fmt.Errorf("active object %q not found", s.Active)
		}
		doc.active = o
	}
	return doc, nil
}

// Scene returns the scene description of the document.
func (d *Document) Scene() Scene {
	var s Scene
	for _, a := range d.Armatures().All() {
		a.mu.RLock()
		as := ArmatureScene{
			Name:      a.name,
			UUID:      a.uuid,
			Custom:    cloneMap(a.custom),
			EditBones: host.CloneBones(a.editBones),
		}
		if len(a.attrs) > 0 {
			as.Attributes = make(map[string]any, len(a.attrs))
			keys := make([]string, 0, len(a.attrs))
			for k := range a.attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				as.Attributes[k] = cloneValue(a.attrs[k])
			}
		}
		if len(as.Custom) == 0 {
			as.Custom = nil
		}
		a.mu.RUnlock()
		s.Armatures = append(s.Armatures, as)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, o := range d.objects {
		ob := ObjectScene{Name: o.name, UUID: o.uuid, Mode: string(o.mode)}
		if o.data != nil {
			ob.Data = o.data.Name()
		}
		s.Objects = append(s.Objects, ob)
	}
	if d.active != nil {
		s.Active = d.active.name
	}
	return s
}

// MarshalScene encodes the document as YAML.
func (d *Document) MarshalScene() ([]byte, error) {
	return yaml.Marshal(d.Scene())
}
