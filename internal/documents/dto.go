package documents

import "github.com/gin-gonic/gin"

func toResponse(doc Document) gin.H {
	return gin.H{
		"documentId": doc.ID,
		"programId":  doc.ProgramID,
		"fileName":   doc.FileName,
		"mimeType":   doc.MimeType,
		"sizeBytes":  doc.SizeBytes,
		"category":   doc.Category,
		"uploadedAt": doc.CreatedAt,
	}
}
