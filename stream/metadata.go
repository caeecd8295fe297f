package stream

import "time"

// Metadata is the metadata.json document stored with each piece of content.
type Metadata struct {
	ID         string      `json:"id,omitempty"`
	GitHubUser string      `json:"githubUser"`
	UploadedAt time.Time   `json:"uploadedAt"`
	Files      []FileEntry `json:"files"`
	TotalSize  int64       `json:"totalSize"`
}

// FileEntry describes one uploaded object.
type FileEntry struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}
