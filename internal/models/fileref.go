package models

// FileKind discriminates the FileRef union.
type FileKind string

const (
	FileEmpty   FileKind = ""
	FilePending FileKind = "pending" // freshly selected, must be uploaded
	FileRemote  FileKind = "remote"  // already stored server-side
)

// FileRef is one document field of an application: empty, a pending upload
// carrying its bytes, or a reference to a file the backend already holds.
// Only pending files are ever transmitted.
type FileRef struct {
	Kind        FileKind `json:"kind,omitempty"`
	Name        string   `json:"name,omitempty"`
	ContentType string   `json:"contentType,omitempty"`
	Data        []byte   `json:"data,omitempty"`
	URL         string   `json:"url,omitempty"`
}

func EmptyFile() FileRef {
	return FileRef{}
}

func PendingFile(name, contentType string, data []byte) FileRef {
	return FileRef{Kind: FilePending, Name: name, ContentType: contentType, Data: data}
}

func RemoteFile(url string) FileRef {
	if url == "" {
		return FileRef{}
	}
	return FileRef{Kind: FileRemote, URL: url}
}

func (f FileRef) IsEmpty() bool { return f.Kind == FileEmpty }
func (f FileRef) IsPending() bool { return f.Kind == FilePending }
func (f FileRef) IsRemote() bool { return f.Kind == FileRemote }

// Present reports whether the field holds anything, upload or remote.
func (f FileRef) Present() bool { return !f.IsEmpty() }

func (f FileRef) clone() FileRef {
	if f.Data != nil {
		f.Data = append([]byte(nil), f.Data...)
	}
	return f
}
