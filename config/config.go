// ev3pipe
// Copyright (c) 2026 The ev3pipe Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of ev3pipe.
//
// ev3pipe is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// ev3pipe is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with ev3pipe; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package config reads the transport configuration surface (spec.md §6)
// and turns it into a composed ev3pipe.Transport (spec.md §4.12), the way
// the teacher pack's cmd/andorhttp2 loads a koanf-backed YAML config into
// a typed settings struct — generalized here to a small Reader port so
// the factory does not depend on koanf directly.
package config

import (
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"gopkg.in/yaml.v3"
)

// Reader is the minimal configuration port the transport factory depends
// on: get(section, default) with type-specific accessors.
type Reader interface {
	String(key, def string) string
	Int(key, def int) int
	Bool(key, def bool) bool
}

// KoanfReader implements Reader over a *koanf.Koanf instance.
type KoanfReader struct {
	k *koanf.Koanf
}

// NewKoanfReader builds a Reader seeded with defaults and, if path is
// non-empty, overlaid with a YAML file at path (a missing file is not an
// error — defaults stand alone).
func NewKoanfReader(defaults map[string]interface{}, path string) (*KoanfReader, error) {
	k := koanf.New(".")
	if len(defaults) > 0 {
		if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
			return nil, err
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yamlParser{}); err != nil {
			if !strings.Contains(err.Error(), "no such file") {
				return nil, err
			}
		}
	}
	return &KoanfReader{k: k}, nil
}

// yamlParser adapts gopkg.in/yaml.v3 to koanf's Parser interface, since
// the teacher pack's own config loader used the yaml.v2-based
// koanf/parsers/yaml package that this module does not otherwise need.
type yamlParser struct{}

func (yamlParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (yamlParser) Marshal(m map[string]interface{}) ([]byte, error) {
	return yaml.Marshal(m)
}

// String implements Reader.
func (r *KoanfReader) String(key, def string) string {
	if !r.k.Exists(key) {
		return def
	}
	return r.k.String(key)
}

// Int implements Reader.
func (r *KoanfReader) Int(key string, def int) int {
	if !r.k.Exists(key) {
		return def
	}
	return r.k.Int(key)
}

// Bool implements Reader.
func (r *KoanfReader) Bool(key string, def bool) bool {
	if !r.k.Exists(key) {
		return def
	}
	return r.k.Bool(key)
}

// MapReader is an in-memory Reader, used for per-brick profile overrides
// that must shadow workspace-level settings without touching a file.
type MapReader map[string]interface{}

func (m MapReader) String(key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (m MapReader) Int(key string, def int) int {
	if v, ok := m[key]; ok {
		if i, ok := v.(int); ok {
			return i
		}
	}
	return def
}

func (m MapReader) Bool(key string, def bool) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Overridden returns a Reader that checks override first, falling back to
// base for any key override does not have (spec.md §4.12: "overrides
// provided at call time shadow workspace-level settings").
func Overridden(base Reader, override MapReader) Reader {
	return layeredReader{base: base, override: override}
}

type layeredReader struct {
	base     Reader
	override MapReader
}

func (l layeredReader) String(key, def string) string {
	if _, ok := l.override[key]; ok {
		return l.override.String(key, def)
	}
	return l.base.String(key, def)
}

func (l layeredReader) Int(key string, def int) int {
	if _, ok := l.override[key]; ok {
		return l.override.Int(key, def)
	}
	return l.base.Int(key, def)
}

func (l layeredReader) Bool(key string, def bool) bool {
	if _, ok := l.override[key]; ok {
		return l.override.Bool(key, def)
	}
	return l.base.Bool(key, def)
}
