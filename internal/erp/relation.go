package erp

// Relation models the tagged variant ERP returns for many-to-one fields:
// either the literal boolean false (empty) or a two-element [id, display]
// list. Upper layers only ever see this normalized shape, never the raw
// XML-RPC value (spec.md §3/§4.A).
type Relation struct {
	Empty bool
	ID    int64
	Name  string
}

// ParseRelation normalizes a raw XML-RPC field value into a Relation.
// Any shape other than "false" or a two-element array is treated as a
// scalar and returned as Empty — callers that expect a relation field
// should treat that as a schema mismatch rather than silently substituting.
func ParseRelation(v any) Relation {
	switch t := v.(type) {
	case bool:
		return Relation{Empty: true}
	case nil:
		return Relation{Empty: true}
	case []any:
		if len(t) != 2 {
			return Relation{Empty: true}
		}
		id, ok := toInt64(t[0])
		if !ok {
			return Relation{Empty: true}
		}
		name, _ := t[1].(string)
		return Relation{ID: id, Name: name}
	default:
		return Relation{Empty: true}
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
