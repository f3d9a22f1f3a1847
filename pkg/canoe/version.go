package canoe

import (
	"fmt"

	"github.com/axonops/vectorcom/internal/dispatch"
)

// Version describes the running CANoe build
type Version struct {
	comObject
}

func newVersion(obj dispatch.Object) *Version {
	return &Version{comObject{obj}}
}

// FullName returns the product name together with the version number
func (v *Version) FullName() (string, error) {
	return v.getString("FullName")
}

// Name returns the product name and edition
func (v *Version) Name() (string, error) {
	return v.getString("Name")
}

// Major returns the major version number
func (v *Version) Major() (int, error) {
	return v.getInt("major")
}

// Minor returns the minor version number
func (v *Version) Minor() (int, error) {
	return v.getInt("minor")
}

// Build returns the build number
func (v *Version) Build() (int, error) {
	return v.getInt("Build")
}

// Patch returns the service pack number
func (v *Version) Patch() (int, error) {
	return v.getInt("Patch")
}

// Release drops the COM reference
func (v *Version) Release() error {
	return v.obj.Release()
}

// VersionInfo is a snapshot of Version
type VersionInfo struct {
	FullName string `json:"full_name" yaml:"full_name"`
	Name     string `json:"name" yaml:"name"`
	Major    int    `json:"major" yaml:"major"`
	Minor    int    `json:"minor" yaml:"minor"`
	Build    int    `json:"build" yaml:"build"`
	Patch    int    `json:"patch" yaml:"patch"`
}

// String renders the number as major.minor.build.patch
func (vi VersionInfo) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", vi.Major, vi.Minor, vi.Build, vi.Patch)
}

// Describe reads every version number at once
func (v *Version) Describe() (VersionInfo, error) {
	var info VersionInfo
	var err error
	if info.FullName, err = v.FullName(); err != nil {
		return info, err
	}
	if info.Name, err = v.Name(); err != nil {
		return info, err
	}
	if info.Major, err = v.Major(); err != nil {
		return info, err
	}
	if info.Minor, err = v.Minor(); err != nil {
		return info, err
	}
	if info.Build, err = v.Build(); err != nil {
		return info, err
	}
	if info.Patch, err = v.Patch(); err != nil {
		return info, err
	}
	return info, nil
}
