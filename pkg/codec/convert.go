package codec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var errNullColumn = errors.New("column is null")

// The sqlite driver hands back int64, float64, string or []byte depending on
// storage class, so decoders accept every representation that can carry the
// value losslessly.

func asInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, errNullColumn
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("non-integral value %v", v)
		}
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected column type %T", raw)
	}
}

func asFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, errNullColumn
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("unexpected column type %T", raw)
	}
}

func asString(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", errNullColumn
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unexpected column type %T", raw)
	}
}

func asBytes(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case nil:
		return nil, errNullColumn
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unexpected column type %T", raw)
	}
}
