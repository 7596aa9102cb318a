package database

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"

	"github.com/kbukum/phrame/provider"
)

// FeedOrder is how the frame feed orders favorites.
type FeedOrder string

const (
	// FeedRecent lists the feed newest first.
	FeedRecent FeedOrder = "recent"
	// FeedRandom lists the latest summary's images first and then the
	// other favorites shuffled.
	FeedRandom FeedOrder = "random"
)

// minGalleryText is the shortest summary search that filters the gallery.
const minGalleryText = 3

// FilterOption is one selectable gallery filter value.
type FilterOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// GalleryQuery selects the summaries and images of one gallery page. Empty
// fields do not filter.
type GalleryQuery struct {
	// BeforeSummaryID starts the page after that summary.
	BeforeSummaryID string
	Favorite        *bool
	AIs             []string
	Styles          []string
	// Text matches summaries containing it; shorter than three
	// characters it is ignored.
	Text string
	// Limit caps the summaries per page; 0 returns every match.
	Limit int
}

// GalleryEntry is a summary with the images that matched the query.
type GalleryEntry struct {
	ID        string        `json:"id"`
	Text      string        `json:"summary"`
	CreatedAt time.Time     `json:"createdAt"`
	Images    []ImageRecord `json:"images"`
}

// GalleryTotals counts the whole catalogue regardless of filters.
type GalleryTotals struct {
	Summaries int64 `json:"summaries"`
	Images    int64 `json:"images"`
	Favorites int64 `json:"favorites"`
}

// GalleryPage is one page of the summary-grouped gallery.
type GalleryPage struct {
	HasMore   bool           `json:"hasMore"`
	Total     GalleryTotals  `json:"total"`
	Galleries []GalleryEntry `json:"galleries"`
}

// SetFavorite marks the images as favorite or not and returns how many
// rows changed.
func (s *Store) SetFavorite(ctx context.Context, ids []string, favorite bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&Image{}).Where("id IN ?", ids).Update("favorite", favorite)
	if res.Error != nil {
		return 0, FromDatabase(res.Error, "image")
	}
	return res.RowsAffected, nil
}

// DeleteImages removes the images and their metadata in one transaction
// and returns the file names of the removed images. Unknown ids are
// skipped.
func (s *Store) DeleteImages(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var filenames []string
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var rows []Image
		if err := tx.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		found := make([]string, len(rows))
		for i, r := range rows {
			found[i] = r.ID
			filenames = append(filenames, r.Filename)
		}
		if err := tx.Where("image_id IN ?", found).Delete(&Meta{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", found).Delete(&Image{}).Error
	})
	if err != nil {
		return nil, FromDatabase(err, "image")
	}
	return filenames, nil
}

// FrameFeed returns what the frame shows: the favorites and the images of
// the latest summary that has any.
func (s *Store) FrameFeed(ctx context.Context, order FeedOrder) ([]ImageRecord, error) {
	db := s.db.WithContext(ctx)
	var latest []string
	if err := db.Model(&Summary{}).
		Where("EXISTS (SELECT 1 FROM images WHERE images.summary_id = summaries.id)").
		Order("created_at desc, id desc").Limit(1).
		Pluck("id", &latest).Error; err != nil {
		return nil, FromDatabase(err, "summary")
	}
	latestID := ""
	if len(latest) > 0 {
		latestID = latest[0]
	}

	var rows []Image
	if err := db.Preload("Meta").
		Where("(favorite = ? OR summary_id = ?)", true, latestID).
		Order("created_at desc, id desc").
		Find(&rows).Error; err != nil {
		return nil, FromDatabase(err, "image")
	}
	texts, err := s.summaryTexts(ctx, rows)
	if err != nil {
		return nil, err
	}
	out := toImageRecords(rows, texts)
	if order != FeedRandom {
		return out, nil
	}

	head := make([]ImageRecord, 0, len(out))
	var favorites []ImageRecord
	for _, r := range out {
		if r.SummaryID == latestID {
			head = append(head, r)
		} else {
			favorites = append(favorites, r)
		}
	}
	rand.Shuffle(len(favorites), func(i, j int) { favorites[i], favorites[j] = favorites[j], favorites[i] })
	return append(head, favorites...), nil
}

// GalleryFilters returns the distinct ai and style values found in the
// image metadata, keyed by meta key.
func (s *Store) GalleryFilters(ctx context.Context) (map[string][]FilterOption, error) {
	var rows []struct {
		Key   string
		Value string
	}
	if err := s.db.WithContext(ctx).Model(&Meta{}).
		Distinct("key", "value").
		Where("key IN ?", []string{"ai", "style"}).
		Order("key, value").
		Find(&rows).Error; err != nil {
		return nil, FromDatabase(err, "meta")
	}
	out := map[string][]FilterOption{"ai": {}, "style": {}}
	for _, r := range rows {
		out[r.Key] = append(out[r.Key], FilterOption{Name: filterName(r.Key, r.Value), Value: r.Value})
	}
	return out, nil
}

func filterName(key, value string) string {
	if key == "ai" {
		if n, err := provider.ParseName(value); err == nil {
			return n.DisplayName()
		}
	}
	words := strings.Fields(value)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Gallery returns one page of summaries, newest first, each with the
// images that match q.
func (s *Store) Gallery(ctx context.Context, q GalleryQuery) (GalleryPage, error) {
	var page GalleryPage
	db := s.db.WithContext(ctx)

	filter := func() *gorm.DB {
		f := db.Model(&Image{})
		if q.Favorite != nil {
			f = f.Where("favorite = ?", *q.Favorite)
		}
		if len(q.AIs) > 0 {
			f = f.Where("EXISTS (SELECT 1 FROM meta WHERE meta.image_id = images.id AND meta.key = ? AND meta.value IN ?)", "ai", q.AIs)
		}
		if len(q.Styles) > 0 {
			f = f.Where("EXISTS (SELECT 1 FROM meta WHERE meta.image_id = images.id AND meta.key = ? AND meta.value IN ?)", "style", q.Styles)
		}
		if len([]rune(q.Text)) >= minGalleryText {
			f = f.Where("summary_id IN (?)", db.Model(&Summary{}).Select("id").Where("text LIKE ?", "%"+q.Text+"%"))
		}
		return f
	}

	summaries := db.Model(&Summary{}).Where("id IN (?)", filter().Distinct("summary_id"))
	if q.BeforeSummaryID != "" {
		var cursor Summary
		if err := db.First(&cursor, "id = ?", q.BeforeSummaryID).Error; err != nil {
			return page, FromDatabase(err, "summary")
		}
		summaries = summaries.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var matching int64
	if err := summaries.Session(&gorm.Session{}).Count(&matching).Error; err != nil {
		return page, FromDatabase(err, "summary")
	}
	var rows []Summary
	list := summaries.Order("created_at desc, id desc")
	if q.Limit > 0 {
		list = list.Limit(q.Limit)
	}
	if err := list.Find(&rows).Error; err != nil {
		return page, FromDatabase(err, "summary")
	}
	page.HasMore = matching > int64(len(rows))

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	var images []Image
	if err := filter().Preload("Meta").Where("summary_id IN ?", ids).Order("created_at desc, id desc").Find(&images).Error; err != nil {
		return page, FromDatabase(err, "image")
	}
	page.Galleries = groupBySummary(rows, toImageRecords(images, nil))

	totals, err := s.galleryTotals(ctx)
	if err != nil {
		return page, err
	}
	page.Total = totals
	return page, nil
}

// GalleryEntry returns one summary with all its images.
func (s *Store) GalleryEntry(ctx context.Context, summaryID string) (GalleryEntry, error) {
	db := s.db.WithContext(ctx)
	var row Summary
	if err := db.First(&row, "id = ?", summaryID).Error; err != nil {
		return GalleryEntry{}, FromDatabase(err, "summary")
	}
	var images []Image
	if err := db.Preload("Meta").Where("summary_id = ?", summaryID).Order("created_at desc, id desc").Find(&images).Error; err != nil {
		return GalleryEntry{}, FromDatabase(err, "image")
	}
	return groupBySummary([]Summary{row}, toImageRecords(images, nil))[0], nil
}

func (s *Store) galleryTotals(ctx context.Context) (GalleryTotals, error) {
	var t GalleryTotals
	db := s.db.WithContext(ctx)
	if err := db.Model(&Summary{}).
		Where("EXISTS (SELECT 1 FROM images WHERE images.summary_id = summaries.id)").
		Count(&t.Summaries).Error; err != nil {
		return t, FromDatabase(err, "summary")
	}
	if err := db.Model(&Image{}).Count(&t.Images).Error; err != nil {
		return t, FromDatabase(err, "image")
	}
	if err := db.Model(&Image{}).Where("favorite = ?", true).Count(&t.Favorites).Error; err != nil {
		return t, FromDatabase(err, "image")
	}
	return t, nil
}

func (s *Store) summaryTexts(ctx context.Context, images []Image) (map[string]string, error) {
	ids := make([]string, 0, len(images))
	seen := make(map[string]bool, len(images))
	for _, img := range images {
		if !seen[img.SummaryID] {
			seen[img.SummaryID] = true
			ids = append(ids, img.SummaryID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []Summary
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, FromDatabase(err, "summary")
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Text
	}
	return out, nil
}

func groupBySummary(summaries []Summary, images []ImageRecord) []GalleryEntry {
	out := make([]GalleryEntry, len(summaries))
	index := make(map[string]int, len(summaries))
	for i, s := range summaries {
		out[i] = GalleryEntry{ID: s.ID, Text: s.Text, CreatedAt: s.CreatedAt, Images: []ImageRecord{}}
		index[s.ID] = i
	}
	for _, img := range images {
		if i, ok := index[img.SummaryID]; ok {
			out[i].Images = append(out[i].Images, img)
		}
	}
	return out
}
