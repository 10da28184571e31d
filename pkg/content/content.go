// Package content computes identity metadata for file version blobs:
// a sha256 content hash, the byte size, and a filename-based MIME type.
// It holds no persistence logic.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// Hash returns the lowercase hex sha256 digest of the raw bytes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString hashes text content as UTF-8 bytes.
func HashString(text string) string {
	return Hash([]byte(text))
}

// Size returns the content size in bytes.
func Size(data []byte) int64 {
	return int64(len(data))
}

// mimeByExtension maps known file extensions to MIME types.
var mimeByExtension = map[string]string{
	".txt":  "text/plain",
	".py":   "text/x-python",
	".js":   "text/javascript",
	".ts":   "text/typescript",
	".html": "text/html",
	".css":  "text/css",
	".json": "application/json",
	".xml":  "application/xml",
	".md":   "text/markdown",
	".java": "text/x-java",
	".cpp":  "text/x-c++",
	".c":    "text/x-c",
	".go":   "text/x-go",
	".rs":   "text/x-rust",
	".sql":  "application/sql",
	".sh":   "application/x-sh",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
}

// DetectMIMEType guesses a MIME type from the filename extension.
// Unknown extensions fall back to application/octet-stream.
func DetectMIMEType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if mime, ok := mimeByExtension[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsText reports whether a MIME type is diffable text content.
func IsText(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/sql", "application/x-sh":
		return true
	}
	return false
}
