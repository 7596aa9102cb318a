package database

import (
	"context"
	"sort"
	"time"

	"github.com/kbukum/phrame/coordinator"
)

// ImageRecord is an image with its metadata flattened into a map.
type ImageRecord struct {
	ID        string            `json:"id"`
	SummaryID string            `json:"summaryId"`
	Summary   string            `json:"summary,omitempty"`
	Filename  string            `json:"filename"`
	Favorite  bool              `json:"favorite"`
	Meta      map[string]string `json:"meta"`
	CreatedAt time.Time         `json:"createdAt"`
}

// TranscriptPage is one page of transcripts, newest first, with the
// number of stored transcripts.
type TranscriptPage struct {
	Count       int64                    `json:"count"`
	Transcripts []coordinator.Transcript `json:"transcripts"`
}

// Store persists transcripts, summaries and images. Times are stored in
// UTC so range queries compare correctly.
type Store struct {
	db  *DB
	now func() time.Time
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now for created_at stamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store on db.
func NewStore(db *DB, opts ...StoreOption) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) stamp() time.Time { return s.now().UTC() }

// CreateTranscript stores text.
func (s *Store) CreateTranscript(ctx context.Context, text string) (coordinator.Transcript, error) {
	row := Transcript{BaseModel: BaseModel{CreatedAt: s.stamp()}, Text: text}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return coordinator.Transcript{}, FromDatabase(err, "transcript")
	}
	return toTranscript(row), nil
}

// PageTranscripts returns up to limit transcripts, newest first. A
// non-empty beforeID starts the page after that transcript.
func (s *Store) PageTranscripts(ctx context.Context, beforeID string, limit int) (TranscriptPage, error) {
	var page TranscriptPage
	db := s.db.WithContext(ctx)
	if err := db.Model(&Transcript{}).Count(&page.Count).Error; err != nil {
		return page, FromDatabase(err, "transcript")
	}

	q := db.Order("created_at desc, id desc").Limit(limit)
	if beforeID != "" {
		var cursor Transcript
		if err := db.First(&cursor, "id = ?", beforeID).Error; err != nil {
			return page, FromDatabase(err, "transcript")
		}
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []Transcript
	if err := q.Find(&rows).Error; err != nil {
		return page, FromDatabase(err, "transcript")
	}
	page.Transcripts = make([]coordinator.Transcript, len(rows))
	for i, r := range rows {
		page.Transcripts[i] = toTranscript(r)
	}
	return page, nil
}

// ListRecentTranscripts returns the transcripts created at or after since,
// oldest first.
func (s *Store) ListRecentTranscripts(ctx context.Context, since time.Time) ([]coordinator.Transcript, error) {
	var rows []Transcript
	if err := s.db.WithContext(ctx).
		Where("created_at >= ?", since.UTC()).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, FromDatabase(err, "transcript")
	}
	out := make([]coordinator.Transcript, len(rows))
	for i, r := range rows {
		out[i] = toTranscript(r)
	}
	return out, nil
}

// DeleteTranscripts removes the transcripts with the given ids.
func (s *Store) DeleteTranscripts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&Transcript{}).Error; err != nil {
		return FromDatabase(err, "transcript")
	}
	return nil
}

// PurgeTranscripts removes the transcripts with the given ids, or every
// transcript when ids is empty, and returns how many were removed.
func (s *Store) PurgeTranscripts(ctx context.Context, ids []string) (int64, error) {
	q := s.db.WithContext(ctx)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	} else {
		q = q.Where("1 = 1")
	}
	res := q.Delete(&Transcript{})
	if res.Error != nil {
		return 0, FromDatabase(res.Error, "transcript")
	}
	return res.RowsAffected, nil
}

// DeleteTranscriptsBefore removes transcripts created before t and
// returns how many were removed.
func (s *Store) DeleteTranscriptsBefore(ctx context.Context, t time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", t.UTC()).Delete(&Transcript{})
	if res.Error != nil {
		return 0, FromDatabase(res.Error, "transcript")
	}
	return res.RowsAffected, nil
}

// CountTranscriptsSince counts transcripts created at or after since.
func (s *Store) CountTranscriptsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Transcript{}).Where("created_at >= ?", since.UTC()).Count(&n).Error; err != nil {
		return 0, FromDatabase(err, "transcript")
	}
	return n, nil
}

// CreateSummary stores a summary.
func (s *Store) CreateSummary(ctx context.Context, text string) (coordinator.Summary, error) {
	row := Summary{BaseModel: BaseModel{CreatedAt: s.stamp()}, Text: text}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return coordinator.Summary{}, FromDatabase(err, "summary")
	}
	return coordinator.Summary{ID: row.ID, Text: row.Text, CreatedAt: row.CreatedAt}, nil
}

// GetSummary loads a summary by id.
func (s *Store) GetSummary(ctx context.Context, id string) (coordinator.Summary, error) {
	var row Summary
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return coordinator.Summary{}, FromDatabase(err, "summary")
	}
	return coordinator.Summary{ID: row.ID, Text: row.Text, CreatedAt: row.CreatedAt}, nil
}

// CreateImage stores an image row for filename and returns its id.
func (s *Store) CreateImage(ctx context.Context, summaryID, filename string) (string, error) {
	row := Image{BaseModel: BaseModel{CreatedAt: s.stamp()}, SummaryID: summaryID, Filename: filename}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", FromDatabase(err, "image")
	}
	return row.ID, nil
}

// AttachMetadata stores one meta row per key in a single transaction.
func (s *Store) AttachMetadata(ctx context.Context, imageID string, meta map[string]string) error {
	if len(meta) == 0 {
		return nil
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := s.stamp()
	rows := make([]Meta, len(keys))
	for i, k := range keys {
		rows[i] = Meta{BaseModel: BaseModel{CreatedAt: now}, ImageID: imageID, Key: k, Value: meta[k]}
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return FromDatabase(err, "meta")
	}
	return nil
}

// LatestImageTime returns the creation time of the newest image. The
// boolean is false when there are no images.
func (s *Store) LatestImageTime(ctx context.Context) (time.Time, bool, error) {
	var rows []Image
	if err := s.db.WithContext(ctx).Order("created_at desc").Limit(1).Find(&rows).Error; err != nil {
		return time.Time{}, false, FromDatabase(err, "image")
	}
	if len(rows) == 0 {
		return time.Time{}, false, nil
	}
	return rows[0].CreatedAt, true, nil
}

// ListImages returns up to limit images, newest first, with their
// metadata. A limit of 0 returns all of them.
func (s *Store) ListImages(ctx context.Context, limit int) ([]ImageRecord, error) {
	q := s.db.WithContext(ctx).Preload("Meta").Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []Image
	if err := q.Find(&rows).Error; err != nil {
		return nil, FromDatabase(err, "image")
	}
	return toImageRecords(rows, nil), nil
}

// toImageRecords flattens rows. summaries maps summary ids to their text
// and may be nil.
func toImageRecords(rows []Image, summaries map[string]string) []ImageRecord {
	out := make([]ImageRecord, len(rows))
	for i, r := range rows {
		meta := make(map[string]string, len(r.Meta))
		for _, m := range r.Meta {
			meta[m.Key] = m.Value
		}
		out[i] = ImageRecord{
			ID:        r.ID,
			SummaryID: r.SummaryID,
			Summary:   summaries[r.SummaryID],
			Filename:  r.Filename,
			Favorite:  r.Favorite,
			Meta:      meta,
			CreatedAt: r.CreatedAt,
		}
	}
	return out
}

func toTranscript(r Transcript) coordinator.Transcript {
	return coordinator.Transcript{ID: r.ID, Text: r.Text, CreatedAt: r.CreatedAt}
}

var _ coordinator.TranscriptStore = (*Store)(nil)
