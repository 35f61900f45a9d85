package sh

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/edgenode/pkg/msgs"
)

var schemaAliases = map[string]string{
	"string": msgs.StringSchema,
	"str":    msgs.StringSchema,
	"bool":   msgs.BoolSchema,
	"int32":  msgs.Int32Schema,
	"int":    msgs.Int32Schema,
}

// SchemaID expands a schema alias. Full IDs are kept.
func SchemaID(schema string) string {
	if id, ok := schemaAliases[strings.ToLower(schema)]; ok {
		return id
	}
	return schema
}

// ParseValue creates a message of schema from its text form.
func ParseValue(schema, value string) (msgs.SerializableMessage, error) {
	id := SchemaID(schema)
	if _, err := msgs.LookupSchema(id); err != nil {
		return nil, err
	}
	switch id {
	case msgs.BoolSchema:
		b, err := ParseBool(value)
		if err != nil {
			return nil, err
		}
		return msgs.NewBool(b), nil
	case msgs.Int32Schema:
		n, err := strconv.ParseInt(value, 0, 32)
		if err != nil {
			return nil, err
		}
		return msgs.NewInt32(int32(n)), nil
	}
	return msgs.NewString(value), nil
}

// ParseBool accepts on/off in addition to strconv.ParseBool forms.
func ParseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid bool %q", value)
	}
	return b, nil
}
