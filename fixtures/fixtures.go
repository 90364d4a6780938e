// Package fixtures resolves the input and output folders that sit next to a
// test file.
package fixtures

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

const (
	// InputDirName holds the read-only reference files
	InputDirName = "TestInputs"
	// OutputDirName receives files written by tests
	OutputDirName = "TestOutputs"
)

func dirOf(currentFile string) string {
	p, err := filepath.Abs(currentFile)
	if err != nil {
		p = currentFile
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	return filepath.Dir(p)
}

// InputFolder returns the TestInputs folder next to currentFile
func InputFolder(currentFile string) string {
	return filepath.Join(dirOf(currentFile), InputDirName)
}

// OutputFolder returns the TestOutputs folder next to currentFile
func OutputFolder(currentFile string) string {
	return filepath.Join(dirOf(currentFile), OutputDirName)
}

// Here returns the input and output folders next to the calling source file
func Here() (input, output string) {
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		wd, _ := os.Getwd()
		file = filepath.Join(wd, "caller.go")
	}
	return InputFolder(file), OutputFolder(file)
}

// UniqueOutputPath returns a path in dir for name that no other call returns,
// keeping the extension so codecs can be chosen from it
func UniqueOutputPath(dir, name string) string {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+"-"+uuid.NewString()+ext)
}
