package solvent

import (
	"io"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Registry is an in-memory package universe implementing VersionOracle.
// Packages are keyed by name; the registry serves a single source, so a
// ref's source and description are echoed back rather than matched.
type Registry struct {
	manifests map[string]map[string]Manifest
	versions  map[string][]Version
}

func NewRegistry() *Registry {
	return &Registry{
		manifests: make(map[string]map[string]Manifest),
		versions:  make(map[string][]Version),
	}
}

// Add registers one package version. Later adds of the same name/version
// replace earlier ones.
func (r *Registry) Add(m Manifest) {
	byVersion := r.manifests[m.Name]
	if byVersion == nil {
		byVersion = make(map[string]Manifest)
		r.manifests[m.Name] = byVersion
	}
	key := m.Version.String()
	if _, dup := byVersion[key]; !dup {
		r.versions[m.Name] = append(r.versions[m.Name], m.Version)
		sortAscending(r.versions[m.Name])
	}
	byVersion[key] = m
}

func (r *Registry) GetVersions(ref PackageRef) ([]PackageID, error) {
	vs, has := r.versions[ref.Name]
	if !has {
		return nil, &PackageNotFoundError{Ref: ref}
	}
	ids := make([]PackageID, len(vs))
	for i, v := range vs {
		ids[i] = PackageID{Ref: ref, Version: v}
	}
	return ids, nil
}

func (r *Registry) Describe(id PackageID) (Manifest, error) {
	byVersion, has := r.manifests[id.Ref.Name]
	if !has {
		return Manifest{}, &PackageNotFoundError{Ref: id.Ref}
	}
	m, has := byVersion[id.Version.String()]
	if !has {
		return Manifest{}, errors.Errorf("no version %s of %s", id.Version, id.Ref.Name)
	}
	return m, nil
}

// A Universe is a complete declarative solve setup: the package registry,
// the root manifest, and the probed SDK.
type Universe struct {
	Registry *Registry
	Root     Manifest
	SDK      SDKInfo
}

type universeYAML struct {
	SDK       string                          `yaml:"sdk"`
	Framework string                          `yaml:"framework"`
	Packages  map[string]map[string]entryYAML `yaml:"packages"`
	Root      rootYAML                        `yaml:"root"`
}

type entryYAML struct {
	Deps      map[string]string `yaml:"deps"`
	SDK       string            `yaml:"sdk"`
	Framework string            `yaml:"framework"`
}

type rootYAML struct {
	Name      string            `yaml:"name"`
	Version   string            `yaml:"version"`
	Deps      map[string]string `yaml:"deps"`
	SDK       string            `yaml:"sdk"`
	Framework string            `yaml:"framework"`
}

// LoadUniverse reads a YAML package universe:
//
//	sdk: 2.18.0
//	packages:
//	  foo:
//	    1.0.0:
//	      deps: {bar: ^1.0.0}
//	      sdk: ">=2.0.0"
//	root:
//	  name: myapp
//	  version: 0.1.0
//	  deps: {foo: ^1.0.0}
func LoadUniverse(r io.Reader) (*Universe, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading universe")
	}

	var doc universeYAML
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing universe")
	}

	u := &Universe{Registry: NewRegistry()}

	if doc.SDK != "" {
		if u.SDK.Runtime, err = NewVersion(doc.SDK); err != nil {
			return nil, errors.Wrap(err, "parsing sdk version")
		}
	}
	if doc.Framework != "" {
		if u.SDK.Framework, err = NewVersion(doc.Framework); err != nil {
			return nil, errors.Wrap(err, "parsing framework version")
		}
		u.SDK.FrameworkAvailable = true
	}

	for name, byVersion := range doc.Packages {
		for body, entry := range byVersion {
			m, err := manifestFromYAML(name, body, entry)
			if err != nil {
				return nil, err
			}
			u.Registry.Add(m)
		}
	}

	if doc.Root.Name != "" {
		body := doc.Root.Version
		if body == "" {
			body = "0.0.0"
		}
		root, err := manifestFromYAML(doc.Root.Name, body, entryYAML{
			Deps:      doc.Root.Deps,
			SDK:       doc.Root.SDK,
			Framework: doc.Root.Framework,
		})
		if err != nil {
			return nil, err
		}
		u.Root = root
	}

	return u, nil
}

func manifestFromYAML(name, body string, entry entryYAML) (Manifest, error) {
	v, err := NewVersion(body)
	if err != nil {
		return Manifest{}, errors.Wrapf(err, "parsing version of %s", name)
	}
	m := Manifest{Name: name, Version: v}

	depNames := make([]string, 0, len(entry.Deps))
	for dep := range entry.Deps {
		depNames = append(depNames, dep)
	}
	sort.Strings(depNames)
	for _, dep := range depNames {
		c, err := ParseConstraint(entry.Deps[dep])
		if err != nil {
			return Manifest{}, errors.Wrapf(err, "parsing dep %s of %s %s", dep, name, body)
		}
		m.Deps = append(m.Deps, PackageDep{Ref: PackageRef{Name: dep}, Constraint: c})
	}

	if entry.SDK != "" {
		if m.SDK, err = ParseConstraint(entry.SDK); err != nil {
			return Manifest{}, errors.Wrapf(err, "parsing sdk constraint of %s %s", name, body)
		}
	}
	if entry.Framework != "" {
		if m.FrameworkSDK, err = ParseConstraint(entry.Framework); err != nil {
			return Manifest{}, errors.Wrapf(err, "parsing framework constraint of %s %s", name, body)
		}
	}
	return m, nil
}
