package schema

import (
	"fmt"
	"strings"

	"github.com/mwantia/bids/data"
)

// BuildName constructs a filename from an entity mapping, a suffix and
// an extension, emitting entities in the grammar's declared order.
// Keys may use either short or long form. The file does not need to
// exist; this is the write-path counterpart of ParseName.
func (s *Schema) BuildName(entities map[string]string, suffix, extension string) (string, error) {
	resolved, err := s.resolve(entities)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := range s.Entities {
		entity := &s.Entities[i]
		if entity.Implicit {
			continue
		}

		value, exists := resolved[entity.Key]
		if !exists {
			continue
		}

		if b.Len() > 0 {
			b.WriteByte('_')
		}
		b.WriteString(entity.Key)
		b.WriteByte('-')
		b.WriteString(value)
	}

	if suffix != "" {
		if b.Len() > 0 {
			b.WriteByte('_')
		}
		b.WriteString(suffix)
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("%w: no entities and no suffix", data.ErrInvalidFilter)
	}

	b.WriteString(extension)
	return b.String(), nil
}

// BuildPath constructs a full relative path: the entity directories
// (subject, session), the datatype directory when present, then the
// filename from BuildName.
func (s *Schema) BuildPath(entities map[string]string, suffix, extension string) (string, error) {
	resolved, err := s.resolve(entities)
	if err != nil {
		return "", err
	}

	name, err := s.BuildName(entities, suffix, extension)
	if err != nil {
		return "", err
	}

	var segments []string
	for i := range s.Entities {
		entity := &s.Entities[i]
		if !entity.Directory {
			continue
		}
		if value, exists := resolved[entity.Key]; exists {
			segments = append(segments, entity.Key+"-"+value)
		}
	}

	if datatype, exists := resolved["datatype"]; exists {
		segments = append(segments, datatype)
	}

	segments = append(segments, name)
	return strings.Join(segments, "/"), nil
}

// resolve maps short or long entity keys onto short keys and checks
// every value against its declared pattern.
func (s *Schema) resolve(entities map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(entities))
	for key, value := range entities {
		entity, known := s.Entity(key)
		if !known {
			return nil, fmt.Errorf("%w: %q", data.ErrUnknownEntity, key)
		}

		if !entity.Pattern.MatchString(value) {
			return nil, fmt.Errorf("%w: value %q for entity %q", data.ErrInvalidFilter, value, key)
		}

		resolved[entity.Key] = value
	}

	return resolved, nil
}
