package format

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/arloliu/lastvalue/types"
)

// Number returns a parser reading field as a numeric Instant.
//
// Go numeric types, json.Number and numeric strings are accepted. Missing fields,
// other types and NaN values yield an undefined Instant.
func Number(field string) types.Parser {
	return types.ParserFunc(func(d types.Datum) (types.Instant, bool) {
		v, ok := d[field]
		if !ok {
			return 0, false
		}

		return toInstant(v)
	})
}

// Time returns a parser reading field as an RFC 3339 timestamp and projecting it to
// Unix epoch milliseconds. time.Time values are accepted as well.
func Time(field string) types.Parser {
	return types.ParserFunc(func(d types.Datum) (types.Instant, bool) {
		switch v := d[field].(type) {
		case time.Time:
			return epochMillis(v), true
		case string:
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return 0, false
			}

			return epochMillis(t), true
		default:
			return 0, false
		}
	})
}

// NumberOrTime returns a parser accepting either representation on field. Strings
// are first tried as numbers, then as RFC 3339 timestamps.
func NumberOrTime(field string) types.Parser {
	num := Number(field)
	ts := Time(field)

	return types.ParserFunc(func(d types.Datum) (types.Instant, bool) {
		if instant, ok := num.Parse(d); ok {
			return instant, true
		}

		return ts.Parse(d)
	})
}

func toInstant(v any) (types.Instant, bool) {
	var f float64
	switch n := v.(type) {
	case types.Instant:
		f = float64(n)
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) {
		return 0, false
	}

	return types.Instant(f), true
}

func epochMillis(t time.Time) types.Instant {
	sub := t.Nanosecond() % int(time.Millisecond)

	return types.Instant(float64(t.UnixMilli()) + float64(sub)/float64(time.Millisecond))
}
