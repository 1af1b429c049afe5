package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	err := fmt.Errorf("lookup: %w", Clone(ErrNotFound, "student report not found"))
	got := FromError(err)
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "student report not found", got.Public())
}

func TestFromErrorPassesCauseThrough(t *testing.T) {
	got := FromError(fmt.Errorf("query student month: %w", sql.ErrConnDone))
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, "query student month: sql: connection is already closed", got.Public())
	assert.ErrorIs(t, got, sql.ErrConnDone)
}

func TestCloneDoesNotMutateBase(t *testing.T) {
	c := Clone(ErrValidation, "missing admin_id")
	assert.Equal(t, "missing admin_id", c.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Nil(t, Internal(nil))
}
