package controller

import (
	"strings"

	"dataset-convertor/models"
	"dataset-convertor/utils"
)

// TopicSeparator is the leading character configuration and log topics may
// disagree on.
const TopicSeparator = "/"

// derivedKeys lists the raw topics that reach configured topic c through
// one separator: c with one prepended (the raw topic gets it stripped), and
// c without its separator when the rest has none (the raw topic gets one
// prepended).
func derivedKeys(c string) []string {
	keys := []string{TopicSeparator + c}
	if rest, ok := strings.CutPrefix(c, TopicSeparator); ok && !strings.HasPrefix(rest, TopicSeparator) {
		keys = append(keys, rest)
	}
	return keys
}

// TopicResolver maps raw log topics to configured sensors. A raw topic
// resolves on an exact match, else after stripping one leading separator if
// it has one, else after prepending one. The index holds every raw topic
// those rules accept, so a lookup is a single map access.
type TopicResolver struct {
	index map[string]models.SensorEntry
}

// NewTopicResolver indexes entries. Two sensors whose topics are equal, or
// differ only by one leading separator, are a ConfigurationError: the log
// cannot tell them apart.
func NewTopicResolver(entries []models.SensorEntry) (*TopicResolver, error) {
	exact := make(map[string]models.SensorEntry, len(entries))
	for _, e := range entries {
		if prev, ok := exact[e.Topic]; ok {
			return nil, utils.ConfigErrorf("index topics",
				"sensors %q and %q share topic %q", prev.Name, e.Name, e.Topic)
		}
		exact[e.Topic] = e
	}
	for _, e := range entries {
		if other, ok := exact[TopicSeparator+e.Topic]; ok {
			return nil, utils.ConfigErrorf("index topics",
				"sensors %q (%s) and %q (%s) differ only by a leading separator",
				e.Name, e.Topic, other.Name, other.Topic)
		}
	}

	// With the checks above no two sensors share a key.
	r := &TopicResolver{index: make(map[string]models.SensorEntry, 3*len(entries))}
	for _, e := range entries {
		r.index[e.Topic] = e
		for _, key := range derivedKeys(e.Topic) {
			r.index[key] = e
		}
	}
	return r, nil
}

// Resolve returns the sensor for a raw topic.
func (r *TopicResolver) Resolve(raw string) (models.SensorEntry, bool) {
	e, ok := r.index[raw]
	return e, ok
}

// RoutedTopics filters topics down to those that resolve, preserving order.
func (r *TopicResolver) RoutedTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if _, ok := r.Resolve(t); ok {
			out = append(out, t)
		}
	}
	return out
}
