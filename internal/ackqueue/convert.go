package ackqueue

import "github.com/flowqio/flowq/internal/types"

// valueToDriver converts a flattened scalar Value into something
// database/sql knows how to bind.
func valueToDriver(v types.Value) interface{} {
	switch v.Kind {
	case types.KindNull:
		return nil
	case types.KindInt:
		return v.Int
	case types.KindFloat:
		return v.Float
	case types.KindText:
		return v.Text
	default:
		return nil
	}
}

// driverToValue converts a raw scanned column value back into a scalar
// Value. Missing fields read back as Null (spec.md §4.1: "reads tolerate
// missing fields as null").
func driverToValue(raw interface{}) types.Value {
	switch v := raw.(type) {
	case nil:
		return types.Null()
	case int64:
		return types.Int(v)
	case int:
		return types.Int(int64(v))
	case float64:
		return types.Float(v)
	case string:
		return types.Text(v)
	case []byte:
		return types.Text(string(v))
	case bool:
		if v {
			return types.Int(1)
		}
		return types.Int(0)
	default:
		return types.Null()
	}
}

func toInt64(raw interface{}) int64 {
	switch v := raw.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
