package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type sessionForm struct {
	Name string `json:"name" binding:"required,notblank,max=10"`
	Room string `json:"room" binding:"omitempty,max=4"`
}

func bindBody(body string, optional bool) map[string]string {
	gin.SetMode(gin.TestMode)
	Setup()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var form sessionForm
	if optional {
		return BindOptional(c, &form)
	}
	return Bind(c, &form)
}

func TestBindTranslatesFieldErrors(t *testing.T) {
	fields := bindBody(`{"name":"   ","room":"B-2045"}`, false)
	assert.Equal(t, "name must not be blank", fields["name"])
	assert.Contains(t, fields["room"], "maximum")
}

func TestBindAcceptsValidBody(t *testing.T) {
	assert.Nil(t, bindBody(`{"name":"Final","room":"B2"}`, false))
}

func TestBindReportsSyntaxErrors(t *testing.T) {
	fields := bindBody(`{"name":`, false)
	assert.Contains(t, fields, "detail")
}

func TestBindOptionalAllowsEmptyBody(t *testing.T) {
	assert.Nil(t, bindBody("", true))
	assert.NotNil(t, bindBody("", false))
	assert.Contains(t, bindBody(`{"name":""}`, true), "name")
}
