package runtimeconfig

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MyteScripts/gridbot/internal/config"
)

// Entry value type labels, also used by the type filter dropdown.
const (
	TypeString   = "string"
	TypeInteger  = "integer"
	TypeBoolean  = "boolean"
	TypeDuration = "duration"
	TypeList     = "list"
)

// Masked replaces secret values in the rendered table.
const Masked = "••••••••"

// Entry is one flattened configuration value. Key is the dotted lowercase
// path, the same shape the GRIDBOT_ environment overrides address.
type Entry struct {
	Key   string
	Type  string
	Value string
}

// secretMarkers flag string values that must never reach the browser.
var secretMarkers = []string{"token", "secret", "password", "salt", "key"}

var durationType = reflect.TypeOf(time.Duration(0))

// Flatten renders the effective configuration as key/value rows, in struct
// field order so the table groups the way etc/main.toml does. Secret
// strings are masked, empty ones stay empty so an unset credential is
// visible as such.
func Flatten(cfg *config.Config) []Entry {
	entries := make([]Entry, 0, 96) //nolint:mnd // rough field count
	walkStruct(reflect.ValueOf(*cfg), "", &entries)

	return entries
}

func walkStruct(v reflect.Value, prefix string, out *[]Entry) {
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		key := keyName(field)
		if prefix != "" {
			key = prefix + "." + key
		}

		walkValue(v.Field(i), key, out)
	}
}

func walkValue(v reflect.Value, key string, out *[]Entry) {
	if v.Type() == durationType {
		*out = append(*out, Entry{Key: key, Type: TypeDuration, Value: v.Interface().(time.Duration).String()})
		return
	}

	switch v.Kind() {
	case reflect.Struct:
		walkStruct(v, key, out)
	case reflect.Map:
		// role_grants style maps become one row per map key
		keys := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			keys = append(keys, k.String())
		}

		sort.Strings(keys)

		for _, k := range keys {
			walkValue(v.MapIndex(reflect.ValueOf(k)), key+"."+k, out)
		}
	case reflect.Slice:
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(v.Index(i).Interface())
		}

		*out = append(*out, Entry{Key: key, Type: TypeList, Value: strings.Join(parts, ", ")})
	case reflect.Bool:
		*out = append(*out, Entry{Key: key, Type: TypeBoolean, Value: strconv.FormatBool(v.Bool())})
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		*out = append(*out, Entry{Key: key, Type: TypeInteger, Value: strconv.FormatInt(v.Int(), 10)})
	case reflect.String:
		*out = append(*out, Entry{Key: key, Type: TypeString, Value: maskSecret(key, v.String())})
	default:
		*out = append(*out, Entry{Key: key, Type: TypeString, Value: fmt.Sprint(v.Interface())})
	}
}

// keyName prefers the toml tag, matching the file and env override names.
func keyName(field reflect.StructField) string {
	if tag := field.Tag.Get("toml"); tag != "" && tag != "-" {
		return tag
	}

	return strings.ToLower(field.Name)
}

// maskSecret hides string values whose leaf key looks like a credential.
// Durations and counters pass through, token_expiry is not a token.
func maskSecret(key, value string) string {
	if value == "" {
		return ""
	}

	leaf := key
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		leaf = key[idx+1:]
	}

	for _, marker := range secretMarkers {
		if strings.Contains(leaf, marker) {
			return Masked
		}
	}

	return value
}
