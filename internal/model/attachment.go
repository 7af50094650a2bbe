// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipapadil7-star/nexus/internal/apperr"
)

// MaxAttachmentBytes caps files sent inline to the backend.
const MaxAttachmentBytes = 20 << 20

var mimeByExt = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"heic": "image/heic",
	"heif": "image/heif",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"svg":  "image/svg+xml",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"pdf":  "application/pdf",
}

// Attachment is a user file loaded for one submission.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// IsImage reports whether the attachment is an image.
func (a *Attachment) IsImage() bool {
	return a != nil && strings.HasPrefix(a.MIMEType, "image/")
}

// IsPDF reports whether the attachment is a PDF.
func (a *Attachment) IsPDF() bool {
	return a != nil && a.MIMEType == "application/pdf"
}

// MIMETypeFor returns the MIME type for a supported file name.
func MIMETypeFor(name string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	mt, ok := mimeByExt[ext]
	return mt, ok
}

// LoadAttachment reads path and checks it is a supported type.
func LoadAttachment(path string) (*Attachment, error) {
	name := filepath.Base(path)
	mt, ok := MIMETypeFor(name)
	if !ok {
		return nil, apperr.NewUnsupported("File %q tidak didukung. Pakai gambar (jpg, png, webp, heic, gif, bmp, svg, tiff) atau PDF.", name)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadRequest, err, fmt.Sprintf("File %q nggak bisa dibaca.", name))
	}
	if info.Size() > MaxAttachmentBytes {
		return nil, apperr.NewUnsupported("File %q kegedean (maksimal %d MB).", name, MaxAttachmentBytes>>20)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadRequest, err, fmt.Sprintf("File %q nggak bisa dibaca.", name))
	}
	return &Attachment{Name: name, MIMEType: mt, Data: data}, nil
}
