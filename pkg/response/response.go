package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/lms-report-api/pkg/errors"
)

// Envelope represents the common success contract for report endpoints.
type Envelope struct {
	Success    bool        `json:"success"`
	ReportType string      `json:"report_type,omitempty"`
	ReportID   string      `json:"report_id,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

// ErrorEnvelope is returned for every failed request.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// Report sends a successful report payload.
func Report(c *gin.Context, reportType, reportID string, data interface{}) {
	noStore(c)
	c.JSON(http.StatusOK, Envelope{Success: true, ReportType: reportType, ReportID: reportID, Data: data})
}

// JSON sends a success response without report identity.
func JSON(c *gin.Context, status int, data interface{}) {
	noStore(c)
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, ErrorEnvelope{Success: false, Message: appErr.Public()})
}

// Attachment streams a rendered file download.
func Attachment(c *gin.Context, filename, contentType string, body []byte) {
	noStore(c)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, body)
}
