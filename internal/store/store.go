package store

import (
	"context"
	"errors"
)

// Document is one schemaless record as stored. Fields carry whatever the
// writer put there; readers coerce at the model boundary. Seq is a
// store-assigned monotonic ordinal per collection, used for stable ordering
// when no explicit order is requested.
type Document struct {
	ID     string
	Fields map[string]interface{}
	Seq    int64
}

// Op is a filter comparison operator.
type Op string

// Supported filter operators.
const (
	OpEqual Op = "=="
	OpGTE   Op = ">="
)

// Filter restricts a query to documents whose field compares against Value.
// Numeric comparisons tolerate int/float/string representations of the same
// value, since the store enforces no schema.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Order sorts query results by a single field.
type Order struct {
	Field string
	Desc  bool
}

// Subscription is a live query feed. Updates delivers the full current
// result set whenever it changes; only the latest unconsumed snapshot is
// retained, so a slow consumer re-renders from the freshest state. Close
// must be called when the consumer goes away.
type Subscription struct {
	ch     chan []*Document
	cancel func()
}

// Updates returns the snapshot channel. Closed after Close.
func (s *Subscription) Updates() <-chan []*Document { return s.ch }

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// DocSubscription is a live feed over a single document. A nil document is
// delivered when the document does not (yet) exist.
type DocSubscription struct {
	ch     chan *Document
	cancel func()
}

// Updates returns the snapshot channel. Closed after Close.
func (s *DocSubscription) Updates() <-chan *Document { return s.ch }

// Close tears the subscription down. Safe to call more than once.
func (s *DocSubscription) Close() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Tx is the handle passed to a transaction body. All reads must happen
// before any write; writes are staged and applied atomically when the body
// returns nil. The store retries the body on conflicting concurrent
// transactions, so bodies must be side-effect free apart from Tx calls.
type Tx interface {
	Get(collection, id string) (*Document, error)
	Set(collection, id string, fields map[string]interface{})
	Update(collection, id string, fields map[string]interface{})
	Delete(collection, id string)
}

// Store is the document database boundary. Collections are path strings
// ("users", "users/u1/mealLogs", "communityPosts/p1/likes"); nesting is
// purely a naming convention, the store treats each path independently.
//
// Get returns (nil, nil) when the document does not exist. Add assigns the
// document ID, a monotonic Seq and a server-side createdAt (ms since epoch)
// when the writer did not provide one.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Query(ctx context.Context, collection string, filters []Filter, orderBy *Order, limit int) ([]*Document, error)
	Subscribe(ctx context.Context, collection string, filters []Filter, orderBy *Order) (*Subscription, error)
	SubscribeDoc(ctx context.Context, collection, id string) (*DocSubscription, error)
	Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error)
	Set(ctx context.Context, collection, id string, fields map[string]interface{}, merge bool) error
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// ErrNotFound is returned by Update inside a transaction when the target
// document does not exist at commit time.
var ErrNotFound = errors.New("document not found")

// CreatedAtField is the server-assigned ordering timestamp key.
const CreatedAtField = "createdAt"

// numericValue coerces stored representations (int, float, numeric string)
// for filter comparison. Mirrors the model-layer coercion but stays local:
// the store cannot depend on the domain packages above it.
func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// matches reports whether doc satisfies all filters.
func matches(doc *Document, filters []Filter) bool {
	for _, f := range filters {
		got, ok := doc.Fields[f.Field]
		if !ok {
			return false
		}
		gn, gok := numericValue(got)
		wn, wok := numericValue(f.Value)
		switch f.Op {
		case OpEqual:
			if gok && wok {
				if gn != wn {
					return false
				}
			} else if got != f.Value {
				return false
			}
		case OpGTE:
			if !gok || !wok || gn < wn {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// less orders two documents by the order field, falling back to Seq for
// equal keys so results stay stable.
func less(a, b *Document, orderBy *Order) bool {
	if orderBy == nil {
		return a.Seq < b.Seq
	}
	av, aok := numericValue(a.Fields[orderBy.Field])
	bv, bok := numericValue(b.Fields[orderBy.Field])
	var before bool
	switch {
	case aok && bok && av != bv:
		before = av < bv
	case !aok || !bok:
		as, _ := a.Fields[orderBy.Field].(string)
		bs, _ := b.Fields[orderBy.Field].(string)
		if as != bs {
			before = as < bs
		} else {
			return a.Seq < b.Seq
		}
	default:
		return a.Seq < b.Seq
	}
	if orderBy.Desc {
		return !before
	}
	return before
}
