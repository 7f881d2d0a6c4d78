// Package buildinfo contains build-time metadata separate from user configuration
package buildinfo

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
// Values are injected with -ldflags at build time.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// NewContext creates a Context from the linker-provided values.
func NewContext(version, buildDate string) *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion returns the build version or UnknownValue.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date or UnknownValue.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// String formats the metadata for --version output.
func (c *Context) String() string {
	return c.GetVersion() + " (built " + c.GetBuildDate() + ")"
}
