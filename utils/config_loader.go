package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ─── Sensor parameter file ──────────────────────────────────────────────

// ParamFile is a parsed YAML parameter tree. Keys are looked up as
// '/'-separated paths, e.g. "info/cam0".
//
//	sensors: [cam0, imu0]
//	data_file: data.csv
//	info:
//	  cam0: {topic: /cam0/image_raw, type: camera, data_dir: data}
//	  imu0: {topic: /imu0, type: imu}
type ParamFile struct {
	path string
	root map[string]any
}

// LoadParamFile reads and parses a YAML parameter file.
func LoadParamFile(path string) (*ParamFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ConfigErrorf("read sensor config", "%s: %w", path, err)
	}
	p, err := ParseParams(data)
	if err != nil {
		return nil, err
	}
	p.path = path
	return p, nil
}

// ParseParams parses YAML parameters from memory.
func ParseParams(data []byte) (*ParamFile, error) {
	root := map[string]any{}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, ConfigErrorf("parse sensor config", "%w", err)
	}
	return &ParamFile{root: root}, nil
}

// Path returns the file the parameters were loaded from ("" when parsed from memory).
func (p *ParamFile) Path() string { return p.path }

func (p *ParamFile) lookup(key string) (any, bool) {
	var cur any = p.root
	for _, part := range strings.Split(strings.Trim(key, "/"), "/") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// String returns a scalar parameter. Non-scalar values count as absent.
func (p *ParamFile) String(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	return scalar(v)
}

// Strings returns a list parameter whose items are all scalars.
func (p *ParamFile) Strings(key string) ([]string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := scalar(item)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Params returns a block of scalar parameters. Nested values are dropped.
func (p *ParamFile) Params(key string) (map[string]string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for k, item := range m {
		if s, ok := scalar(item); ok {
			out[k] = s
		}
	}
	return out, true
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

// ─── Runtime settings ───────────────────────────────────────────────────

// RuntimeEnv holds process settings read from the environment. Command-line
// flags use these values as their defaults.
type RuntimeEnv struct {
	ConfigPath  string `env:"DATASET_CONVERTOR_CONFIG" envDefault:"config/dataset.yaml"`
	LogLevel    string `env:"DATASET_CONVERTOR_LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"DATASET_CONVERTOR_LOG_FILE"`
	MetricsFile string `env:"DATASET_CONVERTOR_METRICS_FILE"`
}

// LoadRuntimeEnv parses RuntimeEnv from the process environment.
func LoadRuntimeEnv() (RuntimeEnv, error) {
	var cfg RuntimeEnv
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
