// Package config loads the optional fix configuration that tells rules how
// to repair violations they cannot fix on their own.
//
// The document is JSON with three recognised top-level keys:
//
//	{
//	  "defaultValues": {"int": "0", "float": "0.0f"},
//	  "disallowedFunctions": {
//	    "stdlib.h": {"malloc": {"location": "alloc.c", "replacement": "pool_alloc"}}
//	  },
//	  "implicitCalls": {"helper": "helper.h"}
//	}
//
// YAML and TOML renditions of the same keys are accepted for files ending in
// .yaml, .yml or .toml.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Keys of the configuration document.
const (
	KeyDefaultValues       = "defaultValues"
	KeyDisallowedFunctions = "disallowedFunctions"
	KeyImplicitCalls       = "implicitCalls"
)

var (
	// ErrMissingKey is returned when the document lacks a top-level key.
	ErrMissingKey = errors.New("key is not defined in the configuration file")
	// ErrMissingEntry is returned when the key exists but has no entry for the lookup.
	ErrMissingEntry = errors.New("missing configuration entry")
	// ErrIncomplete is returned for entries that fail validation.
	ErrIncomplete = errors.New("incomplete configuration entry")
	// ErrMissingLibrary is returned when disallowedFunctions has no section for a library.
	ErrMissingLibrary = errors.New("missing configuration for standard library")
)

// Replacement names a function that stands in for a disallowed one.
type Replacement struct {
	Location    string `json:"location" yaml:"location" toml:"location" validate:"required"`
	Replacement string `json:"replacement" yaml:"replacement" toml:"replacement" validate:"required,c_ident"`
}

// Provider answers fix lookups. *Fix implements it; tests substitute stubs.
type Provider interface {
	DefaultValue(typ string) (string, error)
	Replacement(lib, fn string) (Replacement, error)
	ImplicitCall(fn string) (string, error)
	// Resolve turns a location from the document into a file system path.
	Resolve(location string) string
}

// Fix is a loaded fix configuration.
type Fix struct {
	DefaultValues       map[string]string                 `json:"defaultValues" yaml:"defaultValues" toml:"defaultValues"`
	DisallowedFunctions map[string]map[string]Replacement `json:"disallowedFunctions" yaml:"disallowedFunctions" toml:"disallowedFunctions"`
	ImplicitCalls       map[string]string                 `json:"implicitCalls" yaml:"implicitCalls" toml:"implicitCalls"`

	dir string
}

var _ Provider = (*Fix)(nil)

// Load reads the configuration at path. Relative locations inside the
// document are resolved against the directory of path.
func Load(path string) (*Fix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fix configuration: %w", err)
	}
	fix, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	fix.dir = filepath.Dir(path)
	return fix, nil
}

// Format is the syntax of a configuration document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatTOML
)

// FormatOf picks the format from the file extension; JSON is the default.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Parse decodes a configuration document.
func Parse(data []byte, format Format) (*Fix, error) {
	fix := &Fix{}
	var err error
	switch format {
	case FormatTOML:
		_, err = toml.Decode(string(data), fix)
	case FormatYAML:
		err = yaml.Unmarshal(data, fix)
	default:
		err = json.Unmarshal(data, fix)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	return fix, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("c_ident", func(fl validator.FieldLevel) bool {
		return IsIdentifier(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("registering c_ident validation: %v", err))
	}
	return v
}

// DefaultValue returns the literal to return from functions of type typ.
func (f *Fix) DefaultValue(typ string) (string, error) {
	if f.DefaultValues == nil {
		return "", fmt.Errorf("'%s': %w", KeyDefaultValues, ErrMissingKey)
	}
	v, ok := f.DefaultValues[typ]
	if !ok {
		return "", fmt.Errorf("type '%s': %w", typ, ErrMissingEntry)
	}
	return v, nil
}

// Replacement returns the stand-in for function fn of library lib.
func (f *Fix) Replacement(lib, fn string) (Replacement, error) {
	if f.DisallowedFunctions == nil {
		return Replacement{}, fmt.Errorf("'%s': %w", KeyDisallowedFunctions, ErrMissingKey)
	}
	funcs, ok := f.DisallowedFunctions[lib]
	if !ok {
		return Replacement{}, fmt.Errorf("<%s>: %w", lib, ErrMissingLibrary)
	}
	r, ok := funcs[fn]
	if !ok {
		return Replacement{}, fmt.Errorf("function '%s' of <%s>: %w", fn, lib, ErrMissingEntry)
	}
	if err := validate.Struct(r); err != nil {
		return Replacement{}, fmt.Errorf("function '%s' of <%s>: %w: %v", fn, lib, ErrIncomplete, err)
	}
	return r, nil
}

// ImplicitCall returns the header or source file that declares fn.
func (f *Fix) ImplicitCall(fn string) (string, error) {
	if f.ImplicitCalls == nil {
		return "", fmt.Errorf("'%s': %w", KeyImplicitCalls, ErrMissingKey)
	}
	loc, ok := f.ImplicitCalls[fn]
	if !ok {
		return "", fmt.Errorf("function '%s': %w", fn, ErrMissingEntry)
	}
	if err := validate.Var(loc, "required,endswith=.h|endswith=.c"); err != nil {
		return "", fmt.Errorf("function '%s': %w: %v", fn, ErrIncomplete, err)
	}
	return loc, nil
}

func (f *Fix) Resolve(location string) string {
	if filepath.IsAbs(location) || f.dir == "" {
		return location
	}
	return filepath.Join(f.dir, location)
}

// IsIdentifier reports whether s is a valid C identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
