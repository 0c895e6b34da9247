package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Metadata describes a piece of submitted course text.
type Metadata struct {
	Filename  string `json:"filename"`
	Timestamp string `json:"timestamp"` // RFC3339
	Hash      string `json:"hash"`      // SHA256 hex of the raw text
	Bytes     int    `json:"bytes"`
	Lines     int    `json:"lines"`
}

// NewMetadata describes content with the current timestamp.
func NewMetadata(content string, filename string) *Metadata {
	lines := 0
	if content != "" {
		lines = strings.Count(content, "\n") + 1
		if strings.HasSuffix(content, "\n") {
			lines--
		}
	}
	return &Metadata{
		Filename:  filename,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hash:      computeHash(content),
		Bytes:     len(content),
		Lines:     lines,
	}
}

func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
