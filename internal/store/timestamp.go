package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

// Timestamp is the store's own time type. Values written as time.Time are
// stored as Timestamp and read back as Timestamp.
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// TimestampOf converts t.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// Time returns the instant in UTC.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

const timestampKey = "$timestamp"

// MarshalJSON encodes the timestamp as a tagged object so it survives a JSON round trip.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{timestampKey: ts.Time().Format(time.RFC3339Nano)})
}

type serverTimestamp struct{}

// ServerTimestamp is a sentinel field value replaced with the store clock on write.
var ServerTimestamp any = serverTimestamp{}

// normalize copies data into the stored representation: server timestamps are
// resolved, time.Time becomes Timestamp and decimals become json.Number.
func normalize(data Document, now time.Time) (Document, error) {
	out := make(Document, len(data))
	for k, v := range data {
		nv, err := normalizeValue(v, now)
		if err != nil {
			return nil, errInvalid(fmt.Sprintf("Field %q has an unsupported value.", k))
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(v any, now time.Time) (any, error) {
	switch x := v.(type) {
	case serverTimestamp:
		return TimestampOf(now), nil
	case time.Time:
		return TimestampOf(x), nil
	case decimal.Decimal:
		return json.Number(x.String()), nil
	case nil, string, bool, json.Number, Timestamp,
		int, int32, int64, float32, float64:
		return x, nil
	case Document:
		return normalize(x, now)
	case map[string]any:
		return normalize(x, now)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			nv, err := normalizeValue(x[i], now)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// restore turns decoded JSON back into stored values: tagged objects become Timestamp.
func restore(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if len(x) == 1 {
			if s, ok := x[timestampKey].(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
					return TimestampOf(t)
				}
			}
		}
		out := make(Document, len(x))
		for k, val := range x {
			out[k] = restore(val)
		}
		return out
	case []any:
		for i := range x {
			x[i] = restore(x[i])
		}
		return x
	default:
		return v
	}
}

func cloneDocument(d Document) Document {
	return maps.Clone(d)
}
