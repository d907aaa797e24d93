// Package validate checks request structs against `validate` struct tags.
//
// Rules are comma separated and run in order; the first failing rule wins
// for that field:
//
//	required        non-empty; for pointers, non-nil (so a zero stock is fine)
//	nullable        skip the remaining rules when the value is empty or nil
//	email           something@domain.tld, no whitespace
//	uuid            canonical UUID string
//	url             absolute http(s) URL
//	phone           optional leading +, then 6 to 15 digits (spaces and dashes ignored)
//	min=N / max=N   string length or numeric value
//	gte=N / lte=N   numeric bounds
//	in=a|b|c        value must be one of the listed items
//
// Pointer fields are dereferenced before every rule except required and
// nullable, which is how partial-update inputs express "not sent".
//
//	type RegisterInput struct {
//	    Email    string `json:"email"    validate:"required,email"`
//	    Password string `json:"password" validate:"required,min=6"`
//	    Role     string `json:"role"     validate:"nullable,in=user|admin"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

type rule func(field string, v reflect.Value, param string) string

var rules map[string]rule

func init() {
	rules = map[string]rule{
		"required": func(field string, v reflect.Value, _ string) string {
			if isMissing(v) {
				return fmt.Sprintf("The %s field is required.", field)
			}
			return ""
		},
		"email": func(field string, v reflect.Value, _ string) string {
			if !emailRE.MatchString(text(v)) {
				return fmt.Sprintf("The %s field must be a valid email address.", field)
			}
			return ""
		},
		"uuid": func(field string, v reflect.Value, _ string) string {
			if !uuidRE.MatchString(text(v)) {
				return fmt.Sprintf("The %s field must be a valid id.", field)
			}
			return ""
		},
		"url": func(field string, v reflect.Value, _ string) string {
			u, err := url.ParseRequestURI(text(v))
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Sprintf("The %s field must be a valid URL.", field)
			}
			return ""
		},
		"phone": func(field string, v reflect.Value, _ string) string {
			if !phoneRE.MatchString(strings.NewReplacer(" ", "", "-", "").Replace(text(v))) {
				return fmt.Sprintf("The %s field must be a valid phone number.", field)
			}
			return ""
		},
		"min": func(field string, v reflect.Value, param string) string {
			n := number(param)
			if isNumeric(v) {
				if toFloat(v) < n {
					return fmt.Sprintf("The %s field must be at least %s.", field, param)
				}
			} else if float64(length(v)) < n {
				return fmt.Sprintf("The %s field must be at least %s characters.", field, param)
			}
			return ""
		},
		"max": func(field string, v reflect.Value, param string) string {
			n := number(param)
			if isNumeric(v) {
				if toFloat(v) > n {
					return fmt.Sprintf("The %s field must not be greater than %s.", field, param)
				}
			} else if float64(length(v)) > n {
				return fmt.Sprintf("The %s field must not be greater than %s characters.", field, param)
			}
			return ""
		},
		"gte": func(field string, v reflect.Value, param string) string {
			if toFloat(v) < number(param) {
				return fmt.Sprintf("The %s field must be greater than or equal to %s.", field, param)
			}
			return ""
		},
		"lte": func(field string, v reflect.Value, param string) string {
			if toFloat(v) > number(param) {
				return fmt.Sprintf("The %s field must be less than or equal to %s.", field, param)
			}
			return ""
		},
		"in": func(field string, v reflect.Value, param string) string {
			raw := text(v)
			for _, allowed := range strings.Split(param, "|") {
				if raw == strings.TrimSpace(allowed) {
					return ""
				}
			}
			return fmt.Sprintf("The selected %s is invalid.", field)
		},
	}
}

var (
	// Same shape the storefront has always accepted.
	emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	uuidRE  = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	phoneRE = regexp.MustCompile(`^\+?[0-9]{6,15}$`)
)

// Struct validates the exported fields of v that carry a `validate` tag and
// returns field name (json tag) → message. An empty map means v is valid.
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errs
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("validate")
		if tag == "" || !sf.IsExported() {
			continue
		}
		name := jsonName(sf)
		if msg := check(name, rv.Field(i), strings.Split(tag, ",")); msg != "" {
			errs[name] = msg
		}
	}
	return errs
}

// Var validates a single value against a rule list, e.g. Var("quantity", q, "required,gte=1").
func Var(field string, value interface{}, tag string) string {
	return check(field, reflect.ValueOf(value), strings.Split(tag, ","))
}

// HasErrors returns true when the errs map is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func check(field string, v reflect.Value, list []string) string {
	for _, r := range list {
		name, param, _ := strings.Cut(strings.TrimSpace(r), "=")
		switch name {
		case "":
			continue
		case "nullable":
			if isMissing(deref(v)) {
				return ""
			}
			continue
		case "required":
			if msg := rules[name](field, v, param); msg != "" {
				return msg
			}
			continue
		}

		fn, ok := rules[name]
		if !ok {
			return fmt.Sprintf("The %s field has an unknown rule %q.", field, name)
		}
		target := deref(v)
		if !target.IsValid() {
			continue
		}
		if msg := fn(field, target, param); msg != "" {
			return msg
		}
	}
	return ""
}

func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isMissing(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

func isNumeric(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	// Decimal-like structs that print as a number.
	if v.Kind() == reflect.Struct {
		_, err := strconv.ParseFloat(text(v), 64)
		return err == nil
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	f, _ := strconv.ParseFloat(text(v), 64)
	return f
}

func text(v reflect.Value) string {
	if v.Kind() == reflect.String {
		return v.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}

func length(v reflect.Value) int {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len()
	}
	return len([]rune(text(v)))
}

func number(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name[:1]) + f.Name[1:]
	}
	return name
}
