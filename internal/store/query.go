package store

import (
	"cmp"
	"reflect"
	"slices"
	"time"
)

// Direction is a sort direction for OrderBy.
type Direction int

// Sort directions.
const (
	Asc Direction = iota
	Desc
)

// Filter is an equality condition on a dotted field path.
type Filter struct {
	Value any
	Field string
}

// Query selects documents from one collection.
type Query struct {
	Collection string
	OrderField string
	Filters    []Filter
	Direction  Direction
}

// Collection starts a query over every document of a collection.
func Collection(path string) Query {
	return Query{Collection: path}
}

// Where adds an equality filter.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(slices.Clone(q.Filters), Filter{Field: field, Value: value})
	return q
}

// OrderBy sorts results by a field. Documents lacking the field are excluded
// from ordered results. Ties are broken by document id.
func (q Query) OrderBy(field string, dir Direction) Query {
	q.OrderField = field
	q.Direction = dir
	return q
}

// compiled is a query whose filter values are normalized.
type compiled struct {
	Query
	values []any
}

func (q Query) compile() (*compiled, error) {
	if err := checkCollection(q.Collection); err != nil {
		return nil, err
	}
	c := &compiled{Query: q, values: make([]any, len(q.Filters))}
	for i, f := range q.Filters {
		if _, err := splitField(f.Field); err != nil {
			return nil, err
		}
		v, err := normalize(f.Value)
		if err != nil {
			return nil, err
		}
		c.values[i] = v
	}
	if q.OrderField != "" {
		if _, err := splitField(q.OrderField); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *compiled) matches(d *Document) bool {
	for i, f := range c.Filters {
		v, ok := lookup(d.Data, f.Field)
		if !ok || !reflect.DeepEqual(v, c.values[i]) {
			return false
		}
	}
	if c.OrderField != "" {
		if _, ok := lookup(d.Data, c.OrderField); !ok {
			return false
		}
	}
	return true
}

func (c *compiled) sort(docs []*Document) {
	if c.OrderField == "" {
		return
	}
	slices.SortStableFunc(docs, func(a, b *Document) int {
		av, _ := lookup(a.Data, c.OrderField)
		bv, _ := lookup(b.Data, c.OrderField)
		r := compareValues(av, bv)
		if c.Direction == Desc {
			r = -r
		}
		if r == 0 {
			r = cmp.Compare(a.ID, b.ID)
		}
		return r
	})
}

// typeRank orders values of different JSON types: null < bool < number < string.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

// compareValues orders two normalized values. Strings that both parse as
// RFC 3339 timestamps compare chronologically, since their textual form drops
// trailing zeros and does not sort.
func compareValues(a, b any) int {
	if ra, rb := typeRank(a), typeRank(b); ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		return cmp.Compare(av, b.(float64))
	case string:
		bv := b.(string)
		ta, errA := time.Parse(time.RFC3339Nano, av)
		tb, errB := time.Parse(time.RFC3339Nano, bv)
		if errA == nil && errB == nil {
			return ta.Compare(tb)
		}
		return cmp.Compare(av, bv)
	}
	return 0
}
