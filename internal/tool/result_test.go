package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult_OK(t *testing.T) {
	r := OK([]int{1, 2})
	assert.False(t, r.IsError())
	assert.Empty(t, r.Error())
	assert.Equal(t, "[1,2]", r.JSON())

	// With is a no-op on OK results.
	assert.Equal(t, "[1,2]", r.With("k", "v").JSON())
}

func TestResult_Fail(t *testing.T) {
	r := Fail("Task not found")
	assert.True(t, r.IsError())
	assert.Equal(t, "Task not found", r.Error())
	assert.JSONEq(t, `{"error":"Task not found"}`, r.JSON())
}

func TestResult_FailWithExtra(t *testing.T) {
	base := Fail("nope")
	withHint := base.With("hint", "try again")
	assert.JSONEq(t, `{"error":"nope","hint":"try again"}`, withHint.JSON())
	assert.JSONEq(t, `{"error":"nope"}`, base.JSON())

	// error key cannot be overwritten by extra fields.
	assert.JSONEq(t, `{"error":"nope"}`, base.With("error", "other").JSON())
}

func TestResult_Unencodable(t *testing.T) {
	r := OK(func() {})
	assert.JSONEq(t, `{"error":"failed to encode tool result"}`, r.JSON())
}
