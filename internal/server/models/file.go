package models

import "time"

// File describes server-side metadata for an uploaded file. The bytes
// themselves live in blob storage under the key {UserID}/{StoredPath}.
//
// Name is what the user sees and may repeat within an owner's namespace;
// StoredPath is the time-derived on-disk identity and is unique per owner
// and immutable once assigned.
type File struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	// Name is the display name, mutable via rename.
	Name string `json:"file_name"`
	// StoredPath is derived at upload time, see services.
	StoredPath string `json:"file_path_in_user_dir"`
	// Size is the declared byte size, immutable after upload.
	Size int64 `json:"file_size"`
	// Link is the share token: empty until first requested, then immutable
	// and globally unique.
	Link      string    `json:"file_link"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"date"`
	// LastDownloadAt is set on every successful download.
	LastDownloadAt *time.Time `json:"last_upload_date"`
}

// FileChange describes a partial file update. Nil fields are left untouched.
type FileChange struct {
	Name    *string `json:"file_name"`
	Comment *string `json:"comment"`
}
