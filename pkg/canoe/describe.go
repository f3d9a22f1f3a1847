package canoe

import (
	"github.com/axonops/vectorcom/pkg/errors"
)

// ApplicationInfo is a snapshot of the application and its loaded configuration
type ApplicationInfo struct {
	FullName      string             `json:"full_name" yaml:"full_name"`
	Name          string             `json:"name" yaml:"name"`
	Path          string             `json:"path" yaml:"path"`
	Visible       bool               `json:"visible" yaml:"visible"`
	Version       VersionInfo        `json:"version" yaml:"version"`
	Configuration *ConfigurationInfo `json:"configuration,omitempty" yaml:"configuration,omitempty"`
}

// ConfigurationInfo is a snapshot of a configuration
type ConfigurationInfo struct {
	FullName             string                  `json:"full_name" yaml:"full_name"`
	Name                 string                  `json:"name" yaml:"name"`
	Path                 string                  `json:"path" yaml:"path"`
	Mode                 string                  `json:"mode,omitempty" yaml:"mode,omitempty"`
	Modified             bool                    `json:"modified" yaml:"modified"`
	ExecutionEnvironment string                  `json:"execution_environment,omitempty" yaml:"execution_environment,omitempty"`
	ReadOnly             bool                    `json:"read_only" yaml:"read_only"`
	Saved                bool                    `json:"saved" yaml:"saved"`
	NETTargetFramework   int                     `json:"net_target_framework" yaml:"net_target_framework"`
	Comment              string                  `json:"comment,omitempty" yaml:"comment,omitempty"`
	TestConfigurations   []TestConfigurationInfo `json:"test_configurations,omitempty" yaml:"test_configurations,omitempty"`
}

// TestConfigurationInfo is a snapshot of a test configuration. Members the running
// CANoe version lacks are left nil.
type TestConfigurationInfo struct {
	Name         string                `json:"name" yaml:"name"`
	Caption      *string               `json:"caption,omitempty" yaml:"caption,omitempty"`
	Id           *string               `json:"id,omitempty" yaml:"id,omitempty"`
	Type         string                `json:"type,omitempty" yaml:"type,omitempty"`
	Enabled      bool                  `json:"enabled" yaml:"enabled"`
	Running      *bool                 `json:"running,omitempty" yaml:"running,omitempty"`
	PortCreation *int                  `json:"port_creation,omitempty" yaml:"port_creation,omitempty"`
	Verdict      string                `json:"verdict" yaml:"verdict"`
	TestUnits    []TestUnitInfo        `json:"test_units,omitempty" yaml:"test_units,omitempty"`
	Elements     []TestTreeElementInfo `json:"elements,omitempty" yaml:"elements,omitempty"`
}

// TestUnitInfo is a snapshot of a test unit
type TestUnitInfo struct {
	Name     string                `json:"name" yaml:"name"`
	Caption  *string               `json:"caption,omitempty" yaml:"caption,omitempty"`
	Id       *string               `json:"id,omitempty" yaml:"id,omitempty"`
	Type     string                `json:"type,omitempty" yaml:"type,omitempty"`
	Enabled  bool                  `json:"enabled" yaml:"enabled"`
	Verdict  string                `json:"verdict" yaml:"verdict"`
	Elements []TestTreeElementInfo `json:"elements,omitempty" yaml:"elements,omitempty"`
}

// TestTreeElementInfo is a snapshot of a test tree node and its children
type TestTreeElementInfo struct {
	Caption  string                `json:"caption" yaml:"caption"`
	Id       string                `json:"id" yaml:"id"`
	Title    string                `json:"title,omitempty" yaml:"title,omitempty"`
	Type     string                `json:"type" yaml:"type"`
	Enabled  bool                  `json:"enabled" yaml:"enabled"`
	Verdict  string                `json:"verdict" yaml:"verdict"`
	Elements []TestTreeElementInfo `json:"elements,omitempty" yaml:"elements,omitempty"`
}

// Describe reads the application, its version and the loaded configuration
func (a *Application) Describe() (ApplicationInfo, error) {
	var info ApplicationInfo
	var err error
	if info.FullName, err = a.FullName(); err != nil {
		return info, err
	}
	if info.Name, err = a.Name(); err != nil {
		return info, err
	}
	if info.Path, err = a.Path(); err != nil {
		return info, err
	}
	if info.Visible, err = a.Visible(); err != nil {
		return info, err
	}

	version, err := a.Version()
	if err != nil {
		return info, err
	}
	defer version.Release()
	if info.Version, err = version.Describe(); err != nil {
		return info, err
	}

	cfg, err := a.Configuration()
	if err != nil {
		return info, err
	}
	defer cfg.Release()
	ci, err := cfg.Describe()
	if err != nil {
		return info, err
	}
	info.Configuration = &ci
	return info, nil
}

// Describe reads the configuration and every test configuration below it. Mode and
// ExecutionEnvironment are left empty when CANoe reports a value without a name.
func (c *Configuration) Describe() (ConfigurationInfo, error) {
	var info ConfigurationInfo
	var err error
	if info.FullName, err = c.FullName(); err != nil {
		return info, err
	}
	if info.Name, err = c.Name(); err != nil {
		return info, err
	}
	if info.Path, err = c.Path(); err != nil {
		return info, err
	}
	if mode, err := c.Mode(); err == nil {
		info.Mode = mode.String()
	} else if !errors.Is(err, errors.ErrUnknownValue) {
		return info, err
	}
	if info.Modified, err = c.Modified(); err != nil {
		return info, err
	}
	if env, err := c.ExecutionEnvironment(); err == nil {
		info.ExecutionEnvironment = env.String()
	} else if !errors.Is(err, errors.ErrUnknownValue) {
		return info, err
	}
	if info.ReadOnly, err = c.ReadOnly(); err != nil {
		return info, err
	}
	if info.Saved, err = c.Saved(); err != nil {
		return info, err
	}
	if info.NETTargetFramework, err = c.NETTargetFramework(); err != nil {
		return info, err
	}
	if info.Comment, err = c.Comment(); err != nil {
		return info, err
	}

	tcs, err := c.TestConfigurations()
	if err != nil {
		return info, err
	}
	defer tcs.Release()
	all, err := tcs.All()
	if err != nil {
		return info, err
	}
	defer releaseAll(all)
	for _, tc := range all {
		tci, err := tc.Describe()
		if err != nil {
			return info, err
		}
		info.TestConfigurations = append(info.TestConfigurations, tci)
	}
	return info, nil
}

func (tc *TestConfiguration) Describe() (TestConfigurationInfo, error) {
	var info TestConfigurationInfo
	var err error
	if info.Name, err = tc.Name(); err != nil {
		return info, err
	}
	if info.Caption, err = optionalValue(tc.Caption); err != nil {
		return info, err
	}
	if info.Id, err = optionalValue(tc.Id); err != nil {
		return info, err
	}
	if info.Running, err = optionalValue(tc.Running); err != nil {
		return info, err
	}
	if info.PortCreation, err = optionalValue(tc.PortCreation); err != nil {
		return info, err
	}
	if t, err := tc.Type(); err == nil {
		info.Type = t.String()
	} else if !errors.Is(err, errors.ErrNotSupported) {
		return info, err
	}
	if info.Enabled, err = tc.Enabled(); err != nil {
		return info, err
	}
	verdict, err := tc.Verdict()
	if err != nil {
		return info, err
	}
	info.Verdict = verdict.String()

	units, err := tc.TestUnits()
	if err != nil {
		return info, err
	}
	defer units.Release()
	all, err := units.All()
	if err != nil {
		return info, err
	}
	defer releaseAll(all)
	for _, u := range all {
		ui, err := u.Describe()
		if err != nil {
			return info, err
		}
		info.TestUnits = append(info.TestUnits, ui)
	}

	elements, err := tc.Elements()
	switch {
	case errors.Is(err, errors.ErrNotSupported):
	case err != nil:
		return info, err
	default:
		defer elements.Release()
		if info.Elements, err = elements.Describe(); err != nil {
			return info, err
		}
	}
	return info, nil
}

func (u *TestUnit) Describe() (TestUnitInfo, error) {
	var info TestUnitInfo
	var err error
	if info.Name, err = u.Name(); err != nil {
		return info, err
	}
	if info.Caption, err = optionalValue(u.Caption); err != nil {
		return info, err
	}
	if info.Id, err = optionalValue(u.Id); err != nil {
		return info, err
	}
	if t, err := u.Type(); err == nil {
		info.Type = t.String()
	} else if !errors.Is(err, errors.ErrNotSupported) {
		return info, err
	}
	if info.Enabled, err = u.Enabled(); err != nil {
		return info, err
	}
	verdict, err := u.Verdict()
	if err != nil {
		return info, err
	}
	info.Verdict = verdict.String()

	elements, err := u.Elements()
	switch {
	case errors.Is(err, errors.ErrNotSupported):
	case err != nil:
		return info, err
	default:
		defer elements.Release()
		if info.Elements, err = elements.Describe(); err != nil {
			return info, err
		}
	}
	return info, nil
}

func (e *TestTreeElement) Describe() (TestTreeElementInfo, error) {
	var info TestTreeElementInfo
	var err error
	if info.Caption, err = e.Caption(); err != nil {
		return info, err
	}
	if info.Id, err = e.Id(); err != nil {
		return info, err
	}
	if title, err := e.Title(); err == nil {
		info.Title = title
	} else if !errors.IsMemberNotFound(err, "Title") {
		return info, err
	}
	t, err := e.Type()
	if err != nil {
		return info, err
	}
	info.Type = t.String()
	if info.Enabled, err = e.Enabled(); err != nil {
		return info, err
	}
	verdict, err := e.Verdict()
	if err != nil {
		return info, err
	}
	info.Verdict = verdict.String()

	children, err := e.Elements()
	if err != nil {
		// leaves of older test trees have no Elements member
		if errors.IsMemberNotFound(err, "Elements") {
			return info, nil
		}
		return info, err
	}
	defer children.Release()
	info.Elements, err = children.Describe()
	return info, err
}

// Describe snapshots every element of the collection, depth first
func (c *TestTreeElements) Describe() ([]TestTreeElementInfo, error) {
	all, err := c.All()
	if err != nil {
		return nil, err
	}
	defer releaseAll(all)

	var infos []TestTreeElementInfo
	for _, e := range all {
		info, err := e.Describe()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func optionalValue[T any](get func() (T, error)) (*T, error) {
	v, err := get()
	if errors.Is(err, errors.ErrNotSupported) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type releaser interface {
	Release() error
}

func releaseAll[T releaser](items []T) {
	for _, it := range items {
		it.Release()
	}
}
