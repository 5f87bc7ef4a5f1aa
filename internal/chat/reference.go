// ABOUTME: Reference types attached to messages and requests
// ABOUTME: Covers file/directory context references and persisted image attachments

package chat

import (
	"encoding/base64"
	"path/filepath"
)

// ReferenceStatus indicates whether a reference was usable by the backend.
type ReferenceStatus string

const (
	ReferenceStatusIncluded ReferenceStatus = "included"
	ReferenceStatusBlocked  ReferenceStatus = "blocked"
	ReferenceStatusNotFound ReferenceStatus = "notfound"
	ReferenceStatusEmpty    ReferenceStatus = "empty"
)

// ReferenceType distinguishes file from directory references.
type ReferenceType string

const (
	ReferenceTypeFile      ReferenceType = "file"
	ReferenceTypeDirectory ReferenceType = "directory"
)

// ConversationReference is a piece of context attached to a message, either
// supplied by the user with the request or returned by the backend with the
// response.
type ConversationReference struct {
	URI           string          `json:"uri"`
	Status        ReferenceStatus `json:"status,omitempty"`
	ReferenceType ReferenceType   `json:"referenceType"`
}

// FileName returns the last path component of the reference URI.
func (r ConversationReference) FileName() string {
	return filepath.Base(r.URI)
}

// IsDirectory reports whether the reference points at a directory.
func (r ConversationReference) IsDirectory() bool {
	return r.ReferenceType == ReferenceTypeDirectory
}

// ImageSource records how an attached image was produced.
type ImageSource string

const (
	ImageSourceFile       ImageSource = "file"
	ImageSourceScreenshot ImageSource = "screenshot"
	ImageSourcePasted     ImageSource = "pasted"
)

// ImageReference is a persisted image attachment. Raw inline image content is
// only carried on resend flows; user-attached images are stored as references.
type ImageReference struct {
	Data     []byte      `json:"data"`
	Source   ImageSource `json:"source"`
	FileName string      `json:"fileName,omitempty"`
}

// DataURL renders the image as a data URL for inclusion in a request.
func (r ImageReference) DataURL() string {
	mime := "image/png"
	if r.Source == ImageSourceFile {
		switch filepath.Ext(r.FileName) {
		case ".jpg", ".jpeg":
			mime = "image/jpeg"
		case ".gif":
			mime = "image/gif"
		case ".webp":
			mime = "image/webp"
		}
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// ContentImage is an inline image part of an outgoing request.
type ContentImage struct {
	URL string `json:"url"`
}

// ToContentImages converts persisted image references to inline request parts.
func ToContentImages(refs []ImageReference) []ContentImage {
	if len(refs) == 0 {
		return nil
	}
	images := make([]ContentImage, len(refs))
	for i, ref := range refs {
		images[i] = ContentImage{URL: ref.DataURL()}
	}
	return images
}
