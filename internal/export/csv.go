package export

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Field is one key/value pair of a flat record.
type Field struct {
	Key   string
	Value any
}

// Record is a flat object whose key order is significant.
type Record []Field

// Keys returns the record's keys in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// Lookup returns the value stored under key.
func (r Record) Lookup(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// ToCSV renders records as CSV text.
//
// The header is the first record's keys joined by commas, unquoted, and those
// keys drive every row: a key missing from a later record yields the text
// "undefined", extra keys are ignored. Cells are quoted and embedded quotes
// are escaped with a backslash. Empty input yields "".
func ToCSV(records []Record) string {
	if len(records) == 0 {
		return ""
	}

	headers := records[0].Keys()
	rows := make([]string, 0, len(records)+1)
	rows = append(rows, strings.Join(headers, ","))

	for _, rec := range records {
		cells := make([]string, len(headers))
		for i, h := range headers {
			text := "undefined"
			if v, ok := rec.Lookup(h); ok {
				text = FormatValue(v)
			}
			cells[i] = `"` + strings.ReplaceAll(text, `"`, `\"`) + `"`
		}
		rows = append(rows, strings.Join(cells, ","))
	}

	return strings.Join(rows, "\n")
}

// FormatValue coerces v to cell text. nil is "null", numbers use their
// shortest form, slices are joined by commas and any other composite value
// becomes "[object Object]".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x, 64)
	case float32:
		return formatFloat(float64(x), 32)
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return "null"
		}
		return FormatValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			elem := rv.Index(i)
			if (elem.Kind() == reflect.Interface || elem.Kind() == reflect.Pointer) && elem.IsNil() {
				continue
			}
			parts[i] = FormatValue(elem.Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Map, reflect.Struct:
		return "[object Object]"
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0" // includes -0
	}
	// Number-to-string switches to exponent form outside [1e-6, 1e21).
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, bits)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}
