package diff

import (
	"strings"
	"time"

	"tamperscan/internal/document"
)

// dateLayouts are tried in order when normalizing date-like strings.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// normalized is a field value reduced to a comparable form: exactly one
// of num, str, boolean, or arr is meaningful, selected by kind.
type normalized struct {
	kind    valueKind
	num     float64
	str     string
	boolean bool
	arr     []normalized
}

type valueKind int

const (
	kindNil valueKind = iota
	kindNumber
	kindString
	kindBool
	kindArray
)

// normalize reduces a raw field value to canonical form: numeric types
// and numeric-looking strings become float64, date-like strings become
// canonical UTC RFC3339, everything else compares as-is.
func normalize(v any) normalized {
	switch val := v.(type) {
	case nil:
		return normalized{kind: kindNil}
	case float64:
		return normalized{kind: kindNumber, num: val}
	case float32:
		return normalized{kind: kindNumber, num: float64(val)}
	case int:
		return normalized{kind: kindNumber, num: float64(val)}
	case int32:
		return normalized{kind: kindNumber, num: float64(val)}
	case int64:
		return normalized{kind: kindNumber, num: float64(val)}
	case bool:
		return normalized{kind: kindBool, boolean: val}
	case string:
		return normalizeString(val)
	case []any:
		arr := make([]normalized, len(val))
		for i, elem := range val {
			arr[i] = normalize(elem)
		}
		return normalized{kind: kindArray, arr: arr}
	default:
		// Engine.validate rejects these before comparison.
		return normalized{kind: kindString, str: ""}
	}
}

func normalizeString(s string) normalized {
	trimmed := strings.TrimSpace(s)

	if n, ok := document.ParseNumber(trimmed); ok {
		return normalized{kind: kindNumber, num: n}
	}
	if ts, ok := parseDate(trimmed); ok {
		return normalized{kind: kindString, str: ts.UTC().Format(time.RFC3339)}
	}
	return normalized{kind: kindString, str: trimmed}
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// equal reports whether two normalized values compare equal.
func (n normalized) equal(other normalized) bool {
	if n.kind != other.kind {
		return false
	}
	switch n.kind {
	case kindNil:
		return true
	case kindNumber:
		return n.num == other.num
	case kindString:
		return n.str == other.str
	case kindBool:
		return n.boolean == other.boolean
	case kindArray:
		if len(n.arr) != len(other.arr) {
			return false
		}
		for i := range n.arr {
			if !n.arr[i].equal(other.arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// magnitude returns the relative change from old to new for numeric
// pairs: |(new-old)/old|, defined as 1.0 when old is zero and new is
// not. Non-numeric pairs have magnitude 0.
func magnitude(oldV, newV normalized) float64 {
	if oldV.kind != kindNumber || newV.kind != kindNumber {
		return 0
	}
	if oldV.num == 0 {
		if newV.num == 0 {
			return 0
		}
		return 1.0
	}
	m := (newV.num - oldV.num) / oldV.num
	if m < 0 {
		m = -m
	}
	return m
}

// scoreMagnitude is the direction-independent magnitude used for risk
// scoring: the larger of the relative change measured from either side,
// so swapping the snapshots cannot move a change across a multiplier
// cut-off.
func scoreMagnitude(oldV, newV normalized) float64 {
	forward := magnitude(oldV, newV)
	backward := magnitude(newV, oldV)
	if backward > forward {
		return backward
	}
	return forward
}
