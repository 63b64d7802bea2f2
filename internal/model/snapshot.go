package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FormatVersion is the version stamped into export headers and snapshot
// metadata. Bump only on incompatible layout changes.
const FormatVersion = "1.0"

// FormatTag discriminates backup snapshots from plain export files. It is
// checked before any other snapshot field is trusted.
const FormatTag = "fintrack-backup-v1"

// DateRange is the inclusive date span covered by a dataset.
type DateRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// Metadata describes a persisted dataset. All fields are derived from the
// record set at snapshot time and never hand-edited.
type Metadata struct {
	FormatVersion string          `json:"formatVersion"`
	Owner         string          `json:"owner"`
	CreatedAt     time.Time       `json:"createdAt"`
	RecordCount   int             `json:"recordCount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	DateRange     DateRange       `json:"dateRange"`
	Categories    []string        `json:"distinctCategories"`
	Checksum      string          `json:"checksum"`
}

// Snapshot is a self-describing, portable backup unit: metadata, the full
// record set, and the format discriminator. Immutable once created.
type Snapshot struct {
	Metadata *Metadata `json:"metadata"`
	Records  []Record  `json:"records"`
	Format   string    `json:"format"`
}
