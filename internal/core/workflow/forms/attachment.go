package forms

import (
	"fmt"
	"strings"
)

// MaxAttachmentSize is the largest accepted upload.
const MaxAttachmentSize int64 = 10 << 20

// Attachment is an in-memory handle to a picked file. No bytes are uploaded.
type Attachment struct {
	Name        string
	Size        int64
	ContentType string
}

// CheckAttachment validates a file field. A nil attachment fails with
// missingMsg when required and passes otherwise.
func CheckAttachment(field string, a *Attachment, required bool, missingMsg string) error {
	if a == nil {
		if required {
			return Fail(field, missingMsg)
		}
		return nil
	}
	if !strings.HasPrefix(a.ContentType, "image/") && a.ContentType != "application/pdf" {
		return Fail(field, "Only images and PDF files are accepted")
	}
	if a.Size > MaxAttachmentSize {
		return Fail(field, fmt.Sprintf("File must be at most %dMB", MaxAttachmentSize>>20))
	}
	return nil
}
