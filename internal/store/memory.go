package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store backend. It backs tests and local
// development; semantics (server-assigned createdAt/Seq, latest-wins
// subscription snapshots, all-reads-before-writes transactions) match the
// Postgres backend.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]*Document
	seq         int64
	subs        map[int64]*memSub
	docSubs     map[int64]*memDocSub
	nextSub     int64
	now         func() time.Time
}

type memSub struct {
	collection string
	filters    []Filter
	orderBy    *Order
	ch         chan []*Document
}

type memDocSub struct {
	collection string
	id         string
	ch         chan *Document
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]*Document),
		subs:        make(map[int64]*memSub),
		docSubs:     make(map[int64]*memDocSub),
		now:         time.Now,
	}
}

// SetClock overrides the wall clock, for tests.
func (m *Memory) SetClock(now func() time.Time) { m.now = now }

func cloneFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func cloneDoc(d *Document) *Document {
	return &Document{ID: d.ID, Fields: cloneFields(d.Fields), Seq: d.Seq}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, collection, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.collections[collection][id]
	if doc == nil {
		return nil, nil
	}
	return cloneDoc(doc), nil
}

// Query implements Store.
func (m *Memory) Query(ctx context.Context, collection string, filters []Filter, orderBy *Order, limit int) ([]*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryLocked(collection, filters, orderBy, limit), nil
}

func (m *Memory) queryLocked(collection string, filters []Filter, orderBy *Order, limit int) []*Document {
	var out []*Document
	for _, doc := range m.collections[collection] {
		if matches(doc, filters) {
			out = append(out, cloneDoc(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j], orderBy) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Subscribe implements Store. The current result set is delivered
// immediately, then again after every mutation of the collection.
func (m *Memory) Subscribe(ctx context.Context, collection string, filters []Filter, orderBy *Order) (*Subscription, error) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	sub := &memSub{collection: collection, filters: filters, orderBy: orderBy, ch: make(chan []*Document, 1)}
	m.subs[id] = sub
	sub.ch <- m.queryLocked(collection, filters, orderBy, 0)
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(sub.ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return &Subscription{ch: sub.ch, cancel: cancel}, nil
}

// SubscribeDoc implements Store.
func (m *Memory) SubscribeDoc(ctx context.Context, collection, id string) (*DocSubscription, error) {
	m.mu.Lock()
	subID := m.nextSub
	m.nextSub++
	sub := &memDocSub{collection: collection, id: id, ch: make(chan *Document, 1)}
	m.docSubs[subID] = sub
	if doc := m.collections[collection][id]; doc != nil {
		sub.ch <- cloneDoc(doc)
	} else {
		sub.ch <- nil
	}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.docSubs, subID)
			m.mu.Unlock()
			close(sub.ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return &DocSubscription{ch: sub.ch, cancel: cancel}, nil
}

// Add implements Store.
func (m *Memory) Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.putLocked(collection, id, cloneFields(fields))
	m.notifyLocked(collection)
	return id, nil
}

func (m *Memory) putLocked(collection, id string, fields map[string]interface{}) {
	if _, ok := fields[CreatedAtField]; !ok {
		fields[CreatedAtField] = m.now().UnixMilli()
	}
	m.seq++
	col := m.collections[collection]
	if col == nil {
		col = make(map[string]*Document)
		m.collections[collection] = col
	}
	col[id] = &Document{ID: id, Fields: fields, Seq: m.seq}
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, collection, id string, fields map[string]interface{}, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.collections[collection][id]
	next := cloneFields(fields)
	if merge && existing != nil {
		merged := cloneFields(existing.Fields)
		for k, v := range next {
			merged[k] = v
		}
		next = merged
	}
	m.putLocked(collection, id, next)
	m.notifyLocked(collection)
	return nil
}

// Update implements Store. Fails when the document does not exist.
func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.collections[collection][id]
	if existing == nil {
		return ErrNotFound
	}
	for k, v := range fields {
		existing.Fields[k] = v
	}
	m.notifyLocked(collection)
	return nil
}

// Delete implements Store. Deleting a missing document is a no-op.
func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col := m.collections[collection]
	if col == nil {
		return nil
	}
	if _, ok := col[id]; !ok {
		return nil
	}
	delete(col, id)
	m.notifyLocked(collection)
	return nil
}

// notifyLocked pushes fresh snapshots to every subscription on the given
// collection. Latest-wins: an unconsumed stale snapshot is replaced.
func (m *Memory) notifyLocked(collection string) {
	for _, sub := range m.subs {
		if sub.collection != collection {
			continue
		}
		docs := m.queryLocked(sub.collection, sub.filters, sub.orderBy, 0)
		pushLatest(sub.ch, docs)
	}
	for _, sub := range m.docSubs {
		if sub.collection != collection {
			continue
		}
		var doc *Document
		if d := m.collections[collection][sub.id]; d != nil {
			doc = cloneDoc(d)
		}
		pushLatestDoc(sub.ch, doc)
	}
}

func pushLatest(ch chan []*Document, docs []*Document) {
	select {
	case ch <- docs:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- docs:
		default:
		}
	}
}

func pushLatestDoc(ch chan *Document, doc *Document) {
	select {
	case ch <- doc:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- doc:
		default:
		}
	}
}

type memTxOp struct {
	kind       string // "set", "update", "delete"
	collection string
	id         string
	fields     map[string]interface{}
}

type memTx struct {
	m   *Memory
	ops []memTxOp
}

func (t *memTx) Get(collection, id string) (*Document, error) {
	doc := t.m.collections[collection][id]
	if doc == nil {
		return nil, nil
	}
	return cloneDoc(doc), nil
}

func (t *memTx) Set(collection, id string, fields map[string]interface{}) {
	t.ops = append(t.ops, memTxOp{kind: "set", collection: collection, id: id, fields: cloneFields(fields)})
}

func (t *memTx) Update(collection, id string, fields map[string]interface{}) {
	t.ops = append(t.ops, memTxOp{kind: "update", collection: collection, id: id, fields: cloneFields(fields)})
}

func (t *memTx) Delete(collection, id string) {
	t.ops = append(t.ops, memTxOp{kind: "delete", collection: collection, id: id})
}

// RunTransaction implements Store. The store lock is held across the whole
// body, so reads observe a consistent snapshot and no retry loop is needed;
// staged writes apply only when the body returns nil.
func (m *Memory) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{m: m}
	if err := fn(tx); err != nil {
		return err
	}

	// Validate before mutating so a failed commit leaves no partial state.
	for _, op := range tx.ops {
		if op.kind == "update" && m.collections[op.collection][op.id] == nil {
			return ErrNotFound
		}
	}

	touched := make(map[string]bool)
	for _, op := range tx.ops {
		switch op.kind {
		case "set":
			m.putLocked(op.collection, op.id, op.fields)
		case "update":
			existing := m.collections[op.collection][op.id]
			for k, v := range op.fields {
				existing.Fields[k] = v
			}
		case "delete":
			if col := m.collections[op.collection]; col != nil {
				delete(col, op.id)
			}
		}
		touched[op.collection] = true
	}
	for collection := range touched {
		m.notifyLocked(collection)
	}
	return nil
}
