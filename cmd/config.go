/*
Copyright 2026 Yudhisitra Arief Wibowo

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"

	"github.com/goccy/go-yaml"
	vfs "github.com/twpayne/go-vfs/v4"
)

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FileConfig is the optional YAML config file. Flags set on the command line
// take precedence over it.
type FileConfig struct {
	Device    string    `yaml:"device"`
	SRKSecret string    `yaml:"srk_secret"`
	AIKSecret string    `yaml:"aik_secret"`
	SkipProbe bool      `yaml:"skip_probe"`
	Log       LogConfig `yaml:"log"`
}

func loadConfig(fsys vfs.FS, path string) (FileConfig, error) {
	var cfg FileConfig
	if path == "" {
		return cfg, nil
	}

	content, err := fsys.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file %q: %w", path, err)
	}
	if err := yaml.UnmarshalWithOptions(content, &cfg, yaml.Strict()); err != nil {
		return cfg, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return cfg, nil
}
