package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"portal-server/services/portal-api/internal/infrastructure/metrics"
)

// Config contains connection settings for the Postgres-backed store.
type Config struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        gormlogger.LogLevel
}

// documentRecord is the row shape of the generic documents table.
type documentRecord struct {
	Collection string            `gorm:"primaryKey;size:64"`
	ID         string            `gorm:"primaryKey;size:64"`
	Data       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRecord) TableName() string {
	return "documents"
}

// RemotePublisher forwards local changes to other portal instances.
type RemotePublisher interface {
	Publish(change Change) error
}

// PostgresStore implements Store on a single JSONB documents table.
// Change subscriptions are served from an in-process hub; an optional
// RemotePublisher bridges changes between instances.
type PostgresStore struct {
	db     *gorm.DB
	hub    *changeHub
	log    zerolog.Logger
	remote RemotePublisher
	now    func() time.Time
}

// Connect opens the database and builds the store.
func Connect(cfg Config, log zerolog.Logger) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &PostgresStore{
		db:  db,
		hub: newChangeHub(64),
		log: log.With().Str("component", "docstore").Logger(),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetRemotePublisher attaches the cross-instance change bridge.
func (s *PostgresStore) SetRemotePublisher(remote RemotePublisher) {
	s.remote = remote
}

// ApplyRemote feeds a change received from another instance into the
// local subscription hub.
func (s *PostgresStore) ApplyRemote(change Change) {
	s.hub.publish(change)
}

// Close tears down all open subscriptions.
func (s *PostgresStore) Close() {
	s.hub.closeAll()
}

var fieldNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Query returns matching documents, ordered and limited.
func (s *PostgresStore) Query(ctx context.Context, collection string, filters []Filter, orderBy []OrderBy, limit int) ([]Document, error) {
	started := time.Now()
	defer func() {
		metrics.StoreQueryDuration.WithLabelValues(collection, "query").Observe(time.Since(started).Seconds())
	}()

	tx := s.db.WithContext(ctx).Model(&documentRecord{}).Where("collection = ?", collection)
	for _, f := range filters {
		if !fieldNamePattern.MatchString(f.Field) {
			return nil, fmt.Errorf("%w: unsafe filter field %q", ErrPreconditionFailed, f.Field)
		}
		op, err := sqlOp(f.Op)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(fmt.Sprintf("data ->> '%s' %s ?", f.Field, op), fmt.Sprint(encodeScalar(f.Value, s.now())))
	}
	for _, ob := range orderBy {
		if !fieldNamePattern.MatchString(ob.Field) {
			return nil, fmt.Errorf("%w: unsafe order field %q", ErrPreconditionFailed, ob.Field)
		}
		dir := "ASC"
		if ob.Desc {
			dir = "DESC"
		}
		tx = tx.Order(fmt.Sprintf("data ->> '%s' %s", ob.Field, dir))
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var records []documentRecord
	if err := tx.Find(&records).Error; err != nil {
		return nil, classifyError(err)
	}

	docs := make([]Document, 0, len(records))
	for _, rec := range records {
		docs = append(docs, recordToDocument(rec))
	}
	return docs, nil
}

// Get fetches one document by id.
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var rec documentRecord
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return Document{}, classifyError(err)
	}
	return recordToDocument(rec), nil
}

// Put creates a document, generating an id when none is given.
func (s *PostgresStore) Put(ctx context.Context, collection, id string, fields map[string]any) (Document, error) {
	started := time.Now()
	defer func() {
		metrics.StoreQueryDuration.WithLabelValues(collection, "put").Observe(time.Since(started).Seconds())
	}()

	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()
	rec := documentRecord{
		Collection: collection,
		ID:         id,
		Data:       datatypes.JSONMap(encodeFields(fields, now)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return Document{}, classifyError(err)
	}

	doc := recordToDocument(rec)
	s.broadcast(Change{Kind: ChangeCreated, Doc: doc})
	return doc, nil
}

// Update merges fields into an existing document. The merge happens in
// a single statement on the server, so concurrent updates to disjoint
// fields interleave per field: neither writer reads the row first and
// neither can write back the other's fields stale.
func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	started := time.Now()
	defer func() {
		metrics.StoreQueryDuration.WithLabelValues(collection, "update").Observe(time.Since(started).Seconds())
	}()

	now := s.now()
	patch := datatypes.JSONMap(encodeFields(fields, now))

	res := s.db.WithContext(ctx).Model(&documentRecord{}).
		Where("collection = ? AND id = ?", collection, id).
		Updates(map[string]any{
			"data":       gorm.Expr("COALESCE(data, '{}'::jsonb) || ?::jsonb", patch),
			"updated_at": now,
		})
	if res.Error != nil {
		return classifyError(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}

	var rec documentRecord
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&rec).Error
	if err != nil {
		s.log.Warn().Err(err).
			Str("collection", collection).
			Str("doc_id", id).
			Msg("read back after update failed, change not broadcast")
		return nil
	}

	s.broadcast(Change{Kind: ChangeUpdated, Doc: recordToDocument(rec)})
	return nil
}

// Subscribe opens a live change subscription scoped by the filters.
func (s *PostgresStore) Subscribe(ctx context.Context, collection string, filters []Filter, _ []OrderBy) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.hub.subscribe(ctx, collection, filters), nil
}

func (s *PostgresStore) broadcast(change Change) {
	s.hub.publish(change)
	if s.remote != nil {
		if err := s.remote.Publish(change); err != nil {
			s.log.Warn().Err(err).
				Str("collection", change.Doc.Collection).
				Str("doc_id", change.Doc.ID).
				Msg("remote change publish failed")
		}
	}
}

func sqlOp(op Op) (string, error) {
	switch op {
	case OpEqual:
		return "=", nil
	case OpGreaterOrEqual:
		return ">=", nil
	case OpLessOrEqual:
		return "<=", nil
	default:
		return "", fmt.Errorf("unsupported filter op %q", op)
	}
}

// classifyError separates operator-remediable schema errors from
// generic I/O failure so the aggregator can degrade instead of abort.
func classifyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01", "42703", "42704", "0A000":
			return fmt.Errorf("%w: %s", ErrPreconditionFailed, pgErr.Message)
		}
	}
	return err
}

// jsonTimeLayout is a fixed-width RFC3339 form: nanoseconds are padded
// with zeros instead of trimmed, so the text ordering the database
// applies to `data ->> field` equals chronological ordering. The
// trimmed RFC3339Nano form would sort "00:00:00.1Z" after
// "00:00:00.15Z". RFC3339Nano still parses values written this way.
const jsonTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// encodeFields normalises field values for JSONB storage: server
// timestamps are resolved and times become fixed-width RFC3339 UTC
// strings. The result holds exactly the given fields, nothing else.
func encodeFields(fields map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = encodeScalar(v, now)
	}
	return out
}

func encodeScalar(v any, now time.Time) any {
	switch val := v.(type) {
	case serverTimestamp:
		return now.Format(jsonTimeLayout)
	case time.Time:
		return val.UTC().Format(jsonTimeLayout)
	default:
		return v
	}
}

func recordToDocument(rec documentRecord) Document {
	fields := make(map[string]any, len(rec.Data))
	for k, v := range rec.Data {
		fields[k] = v
	}
	return Document{
		ID:         rec.ID,
		Collection: rec.Collection,
		Fields:     fields,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}
