package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint is a content hash of a utility's descriptive fields.
// Two utilities with equal fingerprints render and rank identically.
type Fingerprint uint64

// String renders the fingerprint as fixed-width hex, suitable for ETags.
func (f Fingerprint) String() string {
	s := strconv.FormatUint(uint64(f), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

// FingerprintFromContent hashes text content using BLAKE2b.
// Identical content always produces an identical fingerprint.
func FingerprintFromContent(text string) Fingerprint {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return Fingerprint(binary.LittleEndian.Uint64(sum))
}

// Status is the operational state of a utility.
type Status string

const (
	// StatusWorking is the default state.
	StatusWorking Status = "working"
	// StatusReported means enough issue reports have been filed to warn users.
	StatusReported Status = "reported"
	// StatusMaintenance means the utility is being serviced.
	StatusMaintenance Status = "maintenance"
	// StatusBroken means the utility should be avoided.
	StatusBroken Status = "broken"
)

// Position is a latitude/longitude pair in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Utility is a point of interest on the campus map.
type Utility struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`  // Category id; unknown ids are tolerated
	Building    string   `json:"building"`
	Floor       string   `json:"floor"` // Optional
	Position    Position `json:"position"`
	Status      Status   `json:"status"`
	Reports     int      `json:"reports"`
	LastChecked string   `json:"lastChecked"`
	Source      string   `json:"-"` // Seed file the utility was last imported from
}

// Fingerprint hashes the fields that describe the utility itself.
// Reports and Status are derived from issue reports and are excluded, as is
// Source.
func (u *Utility) Fingerprint() Fingerprint {
	content := u.ID + "\x00" + u.Name + "\x00" + u.Type + "\x00" + u.Building + "\x00" + u.Floor +
		"\x00" + strconv.FormatFloat(u.Position.Lat, 'f', -1, 64) +
		"\x00" + strconv.FormatFloat(u.Position.Lng, 'f', -1, 64) +
		"\x00" + u.LastChecked
	return FingerprintFromContent(content)
}

// Report is a single issue report filed against a utility.
type Report struct {
	ID        string    `json:"id"`
	UtilityID string    `json:"utilityId"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SearchResult pairs a utility with its relevance score.
// Results of a category-only filter carry a zero score.
type SearchResult struct {
	Utility Utility `json:"utility"`
	Score   int     `json:"score"`
}

// Checkpoint records the last successful import from a source, so an
// unchanged source can be skipped.
type Checkpoint struct {
	Source      string      // Import source, e.g. the seed file path
	Fingerprint Fingerprint // Fingerprint of the source content
	Rows        int         // Rows written by the import
	UpdatedAt   time.Time
}
