package roundtrip

import (
	"path"
	"runtime"
)

// Environment identifies the platform a scenario runs on
type Environment struct {
	GOOS     string
	GOARCH   string
	Compiler string
}

// CurrentEnvironment returns the environment of the running binary
func CurrentEnvironment() Environment {
	return Environment{GOOS: runtime.GOOS, GOARCH: runtime.GOARCH, Compiler: runtime.Compiler}
}

// Scope says what a variance rule disables
type Scope string

const (
	// ScopeMean skips only the mean check, and only for lossless formats
	ScopeMean Scope = "mean"
	// ScopeScenario skips the whole scenario
	ScopeScenario Scope = "scenario"
)

// VarianceRule records an environment known to decode some files
// differently. Empty fields match anything.
type VarianceRule struct {
	Scope    Scope  `yaml:"scope"`
	Format   string `yaml:"format,omitempty"` // codec name
	File     string `yaml:"file,omitempty"`   // path.Match pattern on the case file
	GOOS     string `yaml:"goos,omitempty"`
	GOARCH   string `yaml:"goarch,omitempty"`
	Compiler string `yaml:"compiler,omitempty"`
	Reason   string `yaml:"reason"`
}

// Matches reports whether the rule applies to file in format under env
func (r VarianceRule) Matches(env Environment, format, file string) bool {
	if r.GOOS != "" && r.GOOS != env.GOOS {
		return false
	}
	if r.GOARCH != "" && r.GOARCH != env.GOARCH {
		return false
	}
	if r.Compiler != "" && r.Compiler != env.Compiler {
		return false
	}
	if r.Format != "" && r.Format != format {
		return false
	}
	if r.File != "" {
		ok, err := path.Match(r.File, file)
		if err != nil || !ok {
			return false
		}
	}
	return true
}
