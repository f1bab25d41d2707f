package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
)

// documentRow is the MySQL layout of the document index: one generic
// table, entity class as the index name, JSON body. Timestamps inside the
// body are RFC3339 UTC strings; range filters cast them to DATETIME(6)
// before comparing.
type documentRow struct {
	IndexName string    `gorm:"primaryKey;size:128;column:index_name"`
	DocID     string    `gorm:"primaryKey;size:128;column:doc_id"`
	Body      []byte    `gorm:"type:json"`
	UpdatedAt time.Time `gorm:"index"`
}

func (documentRow) TableName() string {
	return "documents"
}

// Gorm is the production Store backend.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	return &Gorm{db: db}, nil
}

func jsonField(field string) string {
	return fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(body, '$.%s'))", field)
}

// sqlTimeLayout is a fixed-width microsecond form; unlike RFC3339Nano it
// never trims trailing zeros, so lexical order equals temporal order.
const sqlTimeLayout = "2006-01-02 15:04:05.000000"

func sqlTimeBound(t time.Time) string {
	return t.UTC().Format(sqlTimeLayout)
}

// jsonTimeField compares stored timestamps temporally. The bodies carry
// RFC3339Nano with trailing zeros trimmed, so a plain string comparison
// sorts "...00.5Z" before the bound "...00Z" while it lies after it in
// time; stripping the T/Z and casting to DATETIME(6) fixes the order.
func jsonTimeField(field string) string {
	return fmt.Sprintf("CAST(REPLACE(REPLACE(%s, 'T', ' '), 'Z', '') AS DATETIME(6))", jsonField(field))
}

func (g *Gorm) query(ctx context.Context, q Query) *gorm.DB {
	tx := g.db.WithContext(ctx).Model(&documentRow{}).Where("index_name = ?", q.Index)

	for field, want := range q.Terms {
		tx = tx.Where(jsonField(field)+" = ?", want)
	}
	for field, wanted := range q.TermsAny {
		tx = tx.Where(jsonField(field)+" IN ?", wanted)
	}
	for field, want := range q.Contains {
		tx = tx.Where(fmt.Sprintf("JSON_CONTAINS(JSON_EXTRACT(body, '$.%s'), JSON_QUOTE(?))", field), want)
	}
	for _, r := range q.Ranges {
		if r.GTE != nil {
			tx = tx.Where(jsonTimeField(r.Field)+" >= CAST(? AS DATETIME(6))", sqlTimeBound(*r.GTE))
		}
		if r.LT != nil {
			tx = tx.Where(jsonTimeField(r.Field)+" < CAST(? AS DATETIME(6))", sqlTimeBound(*r.LT))
		}
	}
	return tx
}

func (g *Gorm) Search(ctx context.Context, q Query) ([]Document, error) {
	// unbounded window scans would buffer the whole index in memory
	limit := config.SearchLimit
	if q.Limit > 0 {
		limit = q.Limit
	}
	tx := g.query(ctx, q).Order("doc_id ASC").Limit(limit)

	var rows []documentRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		out = append(out, Document{Index: row.IndexName, ID: row.DocID, Source: row.Body})
	}
	return out, nil
}

func (g *Gorm) GetByID(ctx context.Context, index string, id string) (*Document, error) {
	var row documentRow
	err := g.db.WithContext(ctx).
		Where("index_name = ? AND doc_id = ?", index, id).
		Take(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Document{Index: row.IndexName, ID: row.DocID, Source: row.Body}, nil
}

func (g *Gorm) MultiGetByIDs(ctx context.Context, index string, ids []string, ignoreMissingIndex bool) ([]*Document, error) {
	// A single shared table never reports a missing index; absent ids
	// simply come back as nil slots.
	out := make([]*Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []documentRow
	err := g.db.WithContext(ctx).
		Where("index_name = ? AND doc_id IN ?", index, ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[string]documentRow, len(rows))
	for _, row := range rows {
		byID[row.DocID] = row
	}
	for i, id := range ids {
		if row, ok := byID[id]; ok {
			out[i] = &Document{Index: row.IndexName, ID: row.DocID, Source: row.Body}
		}
	}
	return out, nil
}

func (g *Gorm) Count(ctx context.Context, q Query) (int64, error) {
	var n int64
	if err := g.query(ctx, q).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (g *Gorm) BulkUpsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]documentRow, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, documentRow{
			IndexName: doc.Index,
			DocID:     doc.ID,
			Body:      doc.Source,
			UpdatedAt: time.Now().UTC(),
		})
	}
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "index_name"}, {Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
		}).
		CreateInBatches(rows, 200).Error
}

func (g *Gorm) BulkDelete(ctx context.Context, refs []DocRef) error {
	if len(refs) == 0 {
		return nil
	}
	byIndex := make(map[string][]string)
	for _, ref := range refs {
		byIndex[ref.Index] = append(byIndex[ref.Index], ref.ID)
	}
	for index, ids := range byIndex {
		err := g.db.WithContext(ctx).
			Where("index_name = ? AND doc_id IN ?", index, ids).
			Delete(&documentRow{}).Error
		if err != nil {
			return err
		}
	}
	return nil
}
