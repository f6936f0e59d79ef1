package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/hellofit/fitledger/pkg/config"
	"github.com/hellofit/fitledger/pkg/logging"
)

// zapWriter adapts zap.Logger to logger.Writer interface
type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Printf(format string, args ...interface{}) {
	w.logger.Sugar().Infof(format, args...)
}

// documentRow is the single table backing every collection: one JSONB blob
// per document, keyed by (collection, doc_id). Seq doubles as the
// server-assigned per-store ordinal.
type documentRow struct {
	Seq        int64     `gorm:"primaryKey;autoIncrement;column:seq"`
	Collection string    `gorm:"type:varchar(255);not null;uniqueIndex:fit_documents_ux1;column:collection"`
	DocID      string    `gorm:"type:varchar(64);not null;uniqueIndex:fit_documents_ux1;column:doc_id"`
	Fields     []byte    `gorm:"type:jsonb;not null;column:fields"`
	CreatedAt  time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for documentRow
func (documentRow) TableName() string {
	return "fit_documents"
}

// Postgres is the gorm-backed Store. Live subscriptions are poll-based:
// each subscription re-runs its query on an interval and emits when the
// result set changed.
type Postgres struct {
	db     *gorm.DB
	poll   time.Duration
	logger *zap.Logger
}

// NewPostgres opens the database connection and migrates the documents table.
func NewPostgres(cfg *config.StoreConfig, logLevel string) (*Postgres, error) {
	var gormLogLevel logger.LogLevel
	switch logLevel {
	case "DEBUG", "debug":
		gormLogLevel = logger.Info
	case "INFO", "info":
		gormLogLevel = logger.Warn
	case "WARN", "warn", "WARNING", "warning":
		gormLogLevel = logger.Error
	case "ERROR", "error":
		gormLogLevel = logger.Silent
	default:
		gormLogLevel = logger.Warn
	}

	zapLogger := logging.GetLogger()
	writer := &zapWriter{logger: zapLogger}

	gormLogger := logger.New(
		writer,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}

	zapLogger.Info("Document store connection established")

	return &Postgres{
		db:     db,
		poll:   time.Duration(cfg.PollInterval) * time.Second,
		logger: logging.WithComponent("store"),
	}, nil
}

// Close closes the database connection
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks database health
func (p *Postgres) Health(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func decodeRow(row *documentRow) (*Document, error) {
	fields := make(map[string]interface{})
	if err := json.Unmarshal(row.Fields, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", row.Collection, row.DocID, err)
	}
	return &Document{ID: row.DocID, Fields: fields, Seq: row.Seq}, nil
}

// safeField rejects field names that cannot be spliced into an order-by
// expression. Field names come from internal callers, this is a guard
// against future misuse, not user input handling.
func safeField(field string) error {
	for _, r := range field {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return fmt.Errorf("unsupported field name %q", field)
		}
	}
	if field == "" {
		return fmt.Errorf("empty field name")
	}
	return nil
}

func (p *Postgres) buildQuery(tx *gorm.DB, collection string, filters []Filter, orderBy *Order, limit int) (*gorm.DB, error) {
	q := tx.Model(&documentRow{}).Where("collection = ?", collection)
	for _, f := range filters {
		if err := safeField(f.Field); err != nil {
			return nil, err
		}
		switch f.Op {
		case OpEqual:
			// jsonb containment compares numbers numerically regardless of
			// int/float representation.
			probe, err := json.Marshal(map[string]interface{}{f.Field: f.Value})
			if err != nil {
				return nil, err
			}
			q = q.Where("fields @> ?", string(probe))
		case OpGTE:
			n, ok := numericValue(f.Value)
			if !ok {
				return nil, fmt.Errorf("non-numeric value for >= filter on %q", f.Field)
			}
			q = q.Where(fmt.Sprintf("(fields->>'%s')::numeric >= ?", f.Field), n)
		default:
			return nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
	}
	if orderBy != nil {
		if err := safeField(orderBy.Field); err != nil {
			return nil, err
		}
		// Ordering fields in this system (createdAt, dateEpochDay,
		// timestamp) are numeric.
		dir := "ASC"
		if orderBy.Desc {
			dir = "DESC"
		}
		q = q.Order(fmt.Sprintf("(fields->>'%s')::numeric %s, seq %s", orderBy.Field, dir, dir))
	} else {
		q = q.Order("seq ASC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q, nil
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, collection, id string) (*Document, error) {
	var row documentRow
	err := p.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeRow(&row)
}

// Query implements Store.
func (p *Postgres) Query(ctx context.Context, collection string, filters []Filter, orderBy *Order, limit int) ([]*Document, error) {
	q, err := p.buildQuery(p.db.WithContext(ctx), collection, filters, orderBy, limit)
	if err != nil {
		return nil, err
	}
	var rows []documentRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]*Document, 0, len(rows))
	for i := range rows {
		doc, err := decodeRow(&rows[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Add implements Store.
func (p *Postgres) Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	id := uuid.NewString()
	stamped := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		stamped[k] = v
	}
	if _, ok := stamped[CreatedAtField]; !ok {
		stamped[CreatedAtField] = time.Now().UnixMilli()
	}
	blob, err := json.Marshal(stamped)
	if err != nil {
		return "", err
	}
	row := documentRow{Collection: collection, DocID: id, Fields: blob, CreatedAt: time.Now().UTC()}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return id, nil
}

// Set implements Store.
func (p *Postgres) Set(ctx context.Context, collection, id string, fields map[string]interface{}, merge bool) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND doc_id = ?", collection, id).
			First(&row).Error
		exists := err == nil
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}

		next := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			next[k] = v
		}
		if merge && exists {
			existing := make(map[string]interface{})
			if err := json.Unmarshal(row.Fields, &existing); err != nil {
				return err
			}
			for k, v := range next {
				existing[k] = v
			}
			next = existing
		}
		if _, ok := next[CreatedAtField]; !ok {
			next[CreatedAtField] = time.Now().UnixMilli()
		}
		blob, err := json.Marshal(next)
		if err != nil {
			return err
		}
		if exists {
			return tx.Model(&documentRow{}).
				Where("collection = ? AND doc_id = ?", collection, id).
				Update("fields", blob).Error
		}
		return tx.Create(&documentRow{
			Collection: collection,
			DocID:      id,
			Fields:     blob,
			CreatedAt:  time.Now().UTC(),
		}).Error
	})
}

// Update implements Store. Fails when the document does not exist.
func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return applyUpdate(tx, collection, id, fields)
	})
}

func applyUpdate(tx *gorm.DB, collection, id string, fields map[string]interface{}) error {
	var row documentRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	existing := make(map[string]interface{})
	if err := json.Unmarshal(row.Fields, &existing); err != nil {
		return err
	}
	for k, v := range fields {
		existing[k] = v
	}
	blob, err := json.Marshal(existing)
	if err != nil {
		return err
	}
	return tx.Model(&documentRow{}).
		Where("collection = ? AND doc_id = ?", collection, id).
		Update("fields", blob).Error
}

// Delete implements Store. Deleting a missing document is a no-op.
func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	return p.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&documentRow{}).Error
}

type pgTx struct {
	tx  *gorm.DB
	ops []memTxOp
}

func (t *pgTx) Get(collection, id string) (*Document, error) {
	var row documentRow
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeRow(&row)
}

func (t *pgTx) Set(collection, id string, fields map[string]interface{}) {
	t.ops = append(t.ops, memTxOp{kind: "set", collection: collection, id: id, fields: cloneFields(fields)})
}

func (t *pgTx) Update(collection, id string, fields map[string]interface{}) {
	t.ops = append(t.ops, memTxOp{kind: "update", collection: collection, id: id, fields: cloneFields(fields)})
}

func (t *pgTx) Delete(collection, id string) {
	t.ops = append(t.ops, memTxOp{kind: "delete", collection: collection, id: id})
}

// RunTransaction implements Store. Reads take row locks, so concurrent
// transactions over the same documents serialize; staged writes apply
// inside the same database transaction and commit atomically.
func (p *Postgres) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return p.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		t := &pgTx{tx: gtx}
		if err := fn(t); err != nil {
			return err
		}
		for _, op := range t.ops {
			switch op.kind {
			case "set":
				fields := op.fields
				if _, ok := fields[CreatedAtField]; !ok {
					fields[CreatedAtField] = time.Now().UnixMilli()
				}
				blob, err := json.Marshal(fields)
				if err != nil {
					return err
				}
				res := gtx.Model(&documentRow{}).
					Where("collection = ? AND doc_id = ?", op.collection, op.id).
					Update("fields", blob)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					if err := gtx.Create(&documentRow{
						Collection: op.collection,
						DocID:      op.id,
						Fields:     blob,
						CreatedAt:  time.Now().UTC(),
					}).Error; err != nil {
						return err
					}
				}
			case "update":
				if err := applyUpdate(gtx, op.collection, op.id, op.fields); err != nil {
					return err
				}
			case "delete":
				if err := gtx.Where("collection = ? AND doc_id = ?", op.collection, op.id).
					Delete(&documentRow{}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Subscribe implements Store via polling: the query re-runs every poll
// interval and a snapshot is emitted whenever the result set changed.
func (p *Postgres) Subscribe(ctx context.Context, collection string, filters []Filter, orderBy *Order) (*Subscription, error) {
	subCtx, cancelCtx := context.WithCancel(ctx)
	ch := make(chan []*Document, 1)
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelCtx()
		})
	}

	go func() {
		defer close(ch)
		var last []byte
		emit := func() {
			docs, err := p.Query(subCtx, collection, filters, orderBy, 0)
			if err != nil {
				if subCtx.Err() == nil {
					p.logger.Error("Subscription query failed",
						zap.String("collection", collection), zap.Error(err))
				}
				return
			}
			fp, err := json.Marshal(docs)
			if err != nil || bytes.Equal(fp, last) {
				return
			}
			last = fp
			pushLatest(ch, docs)
		}

		emit()
		ticker := time.NewTicker(p.poll)
		defer ticker.Stop()
		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
				emit()
			}
		}
	}()

	return &Subscription{ch: ch, cancel: cancel}, nil
}

// SubscribeDoc implements Store, same polling scheme over a single document.
func (p *Postgres) SubscribeDoc(ctx context.Context, collection, id string) (*DocSubscription, error) {
	subCtx, cancelCtx := context.WithCancel(ctx)
	ch := make(chan *Document, 1)
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelCtx()
		})
	}

	go func() {
		defer close(ch)
		var last []byte
		first := true
		emit := func() {
			doc, err := p.Get(subCtx, collection, id)
			if err != nil {
				if subCtx.Err() == nil {
					p.logger.Error("Doc subscription read failed",
						zap.String("collection", collection), zap.String("id", id), zap.Error(err))
				}
				return
			}
			fp, err := json.Marshal(doc)
			if err != nil {
				return
			}
			if !first && bytes.Equal(fp, last) {
				return
			}
			first = false
			last = fp
			pushLatestDoc(ch, doc)
		}

		emit()
		ticker := time.NewTicker(p.poll)
		defer ticker.Stop()
		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
				emit()
			}
		}
	}()

	return &DocSubscription{ch: ch, cancel: cancel}, nil
}
