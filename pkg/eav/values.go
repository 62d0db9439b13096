// Package eav holds the typed value model used when untyped feature
// properties are turned into attribute rows, and when rows are read back as
// display strings.
package eav

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
)

// Separator joins multiple values of one (site, attribute) pair.
const Separator = " | "

var datePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// Value is a tagged union over the generic value types. Type says which one
// of the payload fields is meaningful.
type Value struct {
	Type models.ValueType
	Int  int64
	Num  float64
	Txt  string
	TS   time.Time
}

// IsEmpty reports whether v carries no information: nil, a blank string or a
// non-finite number.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x) || math.IsInf(x, 0)
	case float32:
		return math.IsNaN(float64(x)) || math.IsInf(float64(x), 0)
	default:
		return false
	}
}

// Infer returns the value type of a single sample. The boolean result is
// false for empty samples, which carry no type.
//
// Precedence: bool -> int, integral number -> int, other number -> num,
// string with a valid leading YYYY-MM-DD date -> ts, any other string -> txt.
func Infer(v any) (models.ValueType, bool) {
	if IsEmpty(v) {
		return "", false
	}
	switch x := v.(type) {
	case bool:
		return models.ValueTypeInt, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return models.ValueTypeInt, true
	case float32:
		return inferFloat(float64(x)), true
	case float64:
		return inferFloat(x), true
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return models.ValueTypeInt, true
		}
		if f, err := x.Float64(); err == nil {
			return inferFloat(f), true
		}
		return models.ValueTypeTxt, true
	case time.Time:
		return models.ValueTypeTS, true
	case string:
		if _, ok := parseDate(x); ok {
			return models.ValueTypeTS, true
		}
		return models.ValueTypeTxt, true
	default:
		return models.ValueTypeTxt, true
	}
}

func inferFloat(f float64) models.ValueType {
	if isIntegral(f) {
		return models.ValueTypeInt
	}
	return models.ValueTypeNum
}

func isIntegral(f float64) bool {
	return f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
}

// Coerce converts v to the declared type t. It returns false when v is empty,
// cannot be parsed as t, or t is not stored in the generic value table.
func Coerce(v any, t models.ValueType) (Value, bool) {
	if IsEmpty(v) {
		return Value{}, false
	}
	switch t {
	case models.ValueTypeInt:
		i, ok := toInt(v)
		return Value{Type: t, Int: i}, ok
	case models.ValueTypeNum:
		f, ok := toFloat(v)
		return Value{Type: t, Num: f}, ok
	case models.ValueTypeTS:
		ts, ok := toTime(v)
		return Value{Type: t, TS: ts}, ok
	case models.ValueTypeTxt:
		s := CleanText(ToText(v))
		return Value{Type: t, Txt: s}, s != ""
	default:
		return Value{}, false
	}
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), x <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case json.Number:
		return toInt(string(x))
	case string:
		s := strings.TrimSpace(x)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
		return 0, false
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || !isIntegral(f) {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i, _ := toInt(x)
		return float64(i), true
	case float32:
		f = float64(x)
	case float64:
		f = x
	case json.Number:
		return toFloat(string(x))
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case string:
		return parseDate(x)
	default:
		return time.Time{}, false
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseDate accepts strings that start with a valid YYYY-MM-DD date. A full
// timestamp is kept when the remainder parses; otherwise only the date is used.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !datePrefix.MatchString(s) {
		return time.Time{}, false
	}
	day, err := time.Parse(time.DateOnly, s[:10])
	if err != nil {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return day, true
}

// ToText renders any property value as text.
func ToText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i, _ := toInt(x)
		return strconv.FormatInt(i, 10)
	case json.Number:
		return x.String()
	case time.Time:
		return FormatTimestamp(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// CleanText strips bytes PostgreSQL text columns cannot hold.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.ToValidUTF8(s, "�")
}

// FormatTimestamp renders midnight UTC values as a bare date.
func FormatTimestamp(t time.Time) string {
	u := t.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.Format(time.DateOnly)
	}
	return u.Format(time.RFC3339)
}

// Join concatenates the values of one (site, attribute) pair in the order given.
func Join(values []string) string {
	return strings.Join(values, Separator)
}
