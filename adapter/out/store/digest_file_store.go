// Package store persists newsletter records as one JSON file per message id.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"digest_server/core/domain"
	"digest_server/core/port/out"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	newslettersDir = "newsletters"
	wordcloudDir   = "word_cloud"
)

// FileStore implements out.RecordStore on a flat directory layout:
// <data_dir>/newsletters/<id>.json, plus <data_dir>/word_cloud for
// generated images.
type FileStore struct {
	newsDir  string
	cloudDir string
	log      zerolog.Logger
}

var _ out.RecordStore = (*FileStore)(nil)

// NewFileStore creates the data directories if needed.
func NewFileStore(dataDir string, log zerolog.Logger) (*FileStore, error) {
	s := &FileStore{
		newsDir:  filepath.Join(dataDir, newslettersDir),
		cloudDir: filepath.Join(dataDir, wordcloudDir),
		log:      log,
	}
	for _, dir := range []string{s.newsDir, s.cloudDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
		}
	}
	return s, nil
}

// WordcloudDir returns the directory for generated wordcloud images.
func (s *FileStore) WordcloudDir() string {
	return s.cloudDir
}

func (s *FileStore) recordPath(id string) string {
	return filepath.Join(s.newsDir, id+".json")
}

// Exists reports whether a record file exists for the id.
func (s *FileStore) Exists(id string) bool {
	_, err := os.Stat(s.recordPath(id))
	return err == nil
}

// Load returns the parsed record, or ok=false when the file is missing or
// unreadable. Parse failures are treated as absent, never as errors.
func (s *FileStore) Load(id string) (*domain.Record, bool) {
	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		return nil, false
	}
	var rec domain.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warn().Str("id", id).Err(err).Msg("skipping unparseable record")
		return nil, false
	}
	return &rec, true
}

// Save writes the full record, replacing any prior content for the id.
// The write goes to a temp file first and is renamed into place so a crash
// mid-write cannot corrupt an existing valid record.
func (s *FileStore) Save(rec *domain.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record has empty id")
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
	}

	path := s.recordPath(rec.ID)
	tmp, err := os.CreateTemp(s.newsDir, rec.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", rec.ID, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write record %s: %w", rec.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file for %s: %w", rec.ID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to rename record %s into place: %w", rec.ID, err)
	}
	return nil
}

// ListMatching scans all record files, applies the filter, and returns the
// result ordered by received_date_time descending. Corrupt or unreadable
// files are skipped rather than aborting the scan.
func (s *FileStore) ListMatching(filter out.ListFilter) ([]*domain.Record, error) {
	entries, err := os.ReadDir(s.newsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store dir: %w", err)
	}

	senderSet := make(map[string]struct{}, len(filter.Senders))
	for _, name := range filter.Senders {
		senderSet[name] = struct{}{}
	}

	records := make([]*domain.Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.newsDir, entry.Name()))
		if err != nil {
			s.log.Warn().Str("file", entry.Name()).Err(err).Msg("skipping unreadable record")
			continue
		}
		var rec domain.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			s.log.Warn().Str("file", entry.Name()).Err(err).Msg("skipping corrupt record")
			continue
		}

		if filter.Day != "" {
			ts, ok := parseTimeSafe(rec.ReceivedDateTime)
			if !ok || ts.Format("2006-01-02") != filter.Day {
				continue
			}
		}
		if len(senderSet) > 0 {
			if _, ok := senderSet[rec.Sender]; !ok {
				continue
			}
		}
		records = append(records, &rec)
	}

	// Raw string comparison matches the serialized timestamp ordering;
	// missing timestamps compare as empty and land at the end.
	sort.Slice(records, func(i, j int) bool {
		return records[i].ReceivedDateTime > records[j].ReceivedDateTime
	})
	return records, nil
}

// timeLayouts are the serializations accepted for received_date_time.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimeSafe(value string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
