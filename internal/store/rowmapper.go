package store

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/conmon/internal/check"
)

// CheckFromRow reconstructs a check.Check from a flat row of
// string-keyed values, keyed by the dotted `db` struct tags already
// present on check.Check (e.g. "metadata.resource_type",
// "fix_details.description"). This is the backend-agnostic bridge
// named in spec.md §4.1's CSV adapter rules and
// original_source/con_mon_v2/checks/db.py's row-to-model mapping: both
// the SQL adapter's column scan and the CSV adapter's header row
// produce exactly this shape, so one mapper serves both backends.
func CheckFromRow(row map[string]interface{}) (*check.Check, error) {
	var c check.Check
	v := reflect.ValueOf(&c).Elem()
	if err := populateStruct(v, row); err != nil {
		return nil, fmt.Errorf("store: mapping row to check: %w", err)
	}
	return &c, nil
}

// populateStruct walks a struct's fields, resolving each field's `db`
// tag against row. The tags on check.Check are already fully-qualified
// dotted paths from the root (e.g. "metadata.operation.name"), so no
// prefix accumulation is needed across nesting levels.
func populateStruct(v reflect.Value, row map[string]interface{}) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		key := field.Tag.Get("db")
		if key == "" || key == "-" {
			continue
		}

		fv := v.Field(i)
		if fv.Kind() == reflect.Struct && fv.Type() != reflect.TypeOf(time.Time{}) {
			if err := populateStruct(fv, row); err != nil {
				return err
			}
			continue
		}

		raw, ok := row[key]
		if !ok || raw == nil {
			continue
		}
		if err := setFieldValue(fv, raw); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, raw interface{}) error {
	switch field.Interface().(type) {
	case uuid.UUID:
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("expected string for uuid, got %T", raw)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(id))
		return nil
	case time.Time:
		switch tv := raw.(type) {
		case time.Time:
			field.Set(reflect.ValueOf(tv))
			return nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, tv)
			if err != nil {
				return err
			}
			field.Set(reflect.ValueOf(t))
			return nil
		default:
			return fmt.Errorf("expected time for %s, got %T", field.Type(), raw)
		}
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			s = fmt.Sprintf("%v", raw)
		}
		field.SetString(s)
	case reflect.Bool:
		switch b := raw.(type) {
		case bool:
			field.SetBool(b)
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return err
			}
			field.SetBool(parsed)
		default:
			return fmt.Errorf("expected bool, got %T", raw)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type %s", field.Type().Elem())
		}
		switch s := raw.(type) {
		case []string:
			field.Set(reflect.ValueOf(s))
		case string:
			if s == "" {
				return nil
			}
			field.Set(reflect.ValueOf(strings.Split(s, ",")))
		default:
			return fmt.Errorf("expected []string or comma-joined string, got %T", raw)
		}
	case reflect.Interface:
		field.Set(reflect.ValueOf(raw))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}
