package models

import (
	"path"

	"dataset-convertor/utils"
)

// Parameter keys of the sensor configuration.
const (
	KeySensorList = "sensors"
	KeyCSVFile    = "data_file"
	KeyInfo       = "info"
	KeyTopic      = "topic"
	KeyType       = "type"
	KeyDataDir    = "data_dir"
)

// ParamSource is a key/value parameter store with presence signaling.
type ParamSource interface {
	String(key string) (string, bool)
	Strings(key string) ([]string, bool)
	Params(key string) (map[string]string, bool)
}

// BuildSensorEntries validates the declarative sensor list and returns one
// SensorEntry per sensor, in the order the list names them. Every failure is
// a ConfigurationError.
func BuildSensorEntries(src ParamSource) ([]SensorEntry, error) {
	const op = "load sensor configuration"

	names, ok := src.Strings(KeySensorList)
	if !ok {
		return nil, utils.ConfigErrorf(op, "missing %q parameter, check your yaml file", KeySensorList)
	}
	csvFile, ok := src.String(KeyCSVFile)
	if !ok || csvFile == "" {
		return nil, utils.ConfigErrorf(op, "missing %q parameter, check your yaml file", KeyCSVFile)
	}

	entries := make([]SensorEntry, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" {
			return nil, utils.ConfigErrorf(op, "empty sensor name in %q", KeySensorList)
		}
		if seen[name] {
			return nil, utils.ConfigErrorf(op, "sensor %q listed twice", name)
		}
		seen[name] = true

		key := KeyInfo + "/" + name
		params, ok := src.Params(key)
		if !ok {
			return nil, utils.ConfigErrorf(op, "missing %q parameter, check your yaml file", key)
		}
		topic := params[KeyTopic]
		if topic == "" {
			return nil, utils.ConfigErrorf(op, "missing %q parameter", key+"/"+KeyTopic)
		}
		typ, ok := params[KeyType]
		if !ok || typ == "" {
			return nil, utils.ConfigErrorf(op, "missing %q parameter", key+"/"+KeyType)
		}
		kind, err := ParseSensorKind(typ)
		if err != nil {
			return nil, utils.ConfigErrorf(op, "%s: %w", key+"/"+KeyType, err)
		}

		e := SensorEntry{
			Name:    name,
			Topic:   topic,
			Kind:    kind,
			CSVPath: path.Join(name, csvFile),
		}
		if dir, ok := params[KeyDataDir]; ok && dir != "" {
			e.DataDir = path.Join(name, dir)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
