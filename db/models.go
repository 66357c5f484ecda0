package db

import (
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// Settings is the single-row node configuration. The control API returns it
// read-only from /system/settings; neither the menu nor the API changes it.
type Settings struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ServeDir       string `json:"serve_dir"`
	DownloadDir    string `json:"download_dir"`
	ChunkSizeBytes int64  `json:"chunk_size_bytes"`
	PortRangeStart int    `json:"port_range_start"`
	PortRangeEnd   int    `json:"port_range_end"`
}

// DownloadRecord is an append-only history row written once a download job
// reaches a terminal state. Nothing in the CLI or the API reads it back: the
// /downloads endpoints list core.JobRegistry, which holds live progress.
type DownloadRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	JobID       string    `gorm:"column:job_id;index" json:"job_id"`
	Filename    string    `json:"filename"`
	SizeBytes   int64     `json:"size_bytes"`
	SeederCount int       `json:"seeder_count"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Success     bool      `json:"success"`
}

const (
	defaultChunkSizeBytes = 1 << 20 // 1 MiB
	defaultPortRangeStart = 9000
	defaultPortRangeEnd   = 9100
)

func InitDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Settings{}, &DownloadRecord{}); err != nil {
		return nil, err
	}

	var count int64
	db.Model(&Settings{}).Count(&count)
	if count == 0 {
		db.Create(&Settings{
			ChunkSizeBytes: defaultChunkSizeBytes,
			PortRangeStart: defaultPortRangeStart,
			PortRangeEnd:   defaultPortRangeEnd,
		})
	}

	return db, nil
}

// LoadSettings returns the single settings row, creating it with defaults
// if InitDB's migration somehow raced past it.
func LoadSettings(gdb *gorm.DB) (Settings, error) {
	var s Settings
	err := gdb.FirstOrCreate(&s, Settings{
		ChunkSizeBytes: defaultChunkSizeBytes,
		PortRangeStart: defaultPortRangeStart,
		PortRangeEnd:   defaultPortRangeEnd,
	}).Error
	return s, err
}

// RecordDownload appends a terminal-state row for a finished job.
func RecordDownload(gdb *gorm.DB, rec DownloadRecord) error {
	return gdb.Create(&rec).Error
}
