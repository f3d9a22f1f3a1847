package canoe

import (
	"github.com/axonops/vectorcom/internal/dispatch"
)

// Configuration is the currently loaded CANoe configuration
type Configuration struct {
	comObject
	env *env
}

func newConfiguration(obj dispatch.Object, e *env) *Configuration {
	return &Configuration{comObject: comObject{obj}, env: e}
}

// FullName returns the path and file name of the configuration
func (c *Configuration) FullName() (string, error) {
	return c.getString("FullName")
}

// Name returns the file name of the configuration
func (c *Configuration) Name() (string, error) {
	return c.getString("Name")
}

// Path returns the directory holding the configuration file
func (c *Configuration) Path() (string, error) {
	return c.getString("Path")
}

// Modified reports whether the configuration changed since it was last saved
func (c *Configuration) Modified() (bool, error) {
	return c.getBool("Modified")
}

// ReadOnly reports whether the configuration file is write protected
func (c *Configuration) ReadOnly() (bool, error) {
	return c.getBool("ReadOnly")
}

// Saved reports whether the configuration has no unsaved changes
func (c *Configuration) Saved() (bool, error) {
	return c.getBool("Saved")
}

// NETTargetFramework returns the raw id of the .NET framework that
// CAPL .NET nodes of this configuration are compiled against
func (c *Configuration) NETTargetFramework() (int, error) {
	return c.getInt("NETTargetFramework")
}

// Comment returns the free text comment stored with the configuration
func (c *Configuration) Comment() (string, error) {
	return c.getString("Comment")
}

// Mode returns whether the configuration runs online or offline
func (c *Configuration) Mode() (ConfigurationMode, error) {
	raw, err := c.getInt("Mode")
	if err != nil {
		return 0, err
	}
	return parseConfigurationMode(raw)
}

// SetMode switches between online and offline mode
func (c *Configuration) SetMode(mode ConfigurationMode) error {
	return c.put("Mode", int(mode))
}

// ExecutionEnvironment returns the runtime the measurement executes in
func (c *Configuration) ExecutionEnvironment() (ExecutionEnvironment, error) {
	raw, err := c.getInt("ExecutionEnvironment")
	if err != nil {
		return 0, err
	}
	return parseExecutionEnvironment(raw)
}

func (c *Configuration) SetExecutionEnvironment(env ExecutionEnvironment) error {
	return c.put("ExecutionEnvironment", int(env))
}

// TestConfigurations returns the test configurations defined in this configuration
func (c *Configuration) TestConfigurations() (*TestConfigurations, error) {
	obj, err := c.getObject("TestConfigurations")
	if err != nil {
		return nil, err
	}
	return newTestConfigurations(obj, c.env), nil
}

// Save writes the configuration to its current file
func (c *Configuration) Save() error {
	return c.call("Save")
}

// Release drops the COM reference
func (c *Configuration) Release() error {
	return c.obj.Release()
}
