package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainRenderer_UpdateProgress_WritesStageAndCounts(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})

	r.UpdateProgress(ProgressEvent{Stage: StageExtract, Current: 3, Total: 10, Crate: "widget"})

	out := buf.String()
	assert.Contains(t, out, "[EXTRACT]")
	assert.Contains(t, out, "3/10")
	assert.Contains(t, out, "widget")
}

func TestPlainRenderer_UpdateProgress_NoTotalUsesMessageLine(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})

	r.UpdateProgress(ProgressEvent{Stage: StageEnumerate, Message: "scanning mirror index"})

	assert.Contains(t, buf.String(), "scanning mirror index")
}

func TestPlainRenderer_AddError_MarksWarnVsError(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})

	r.AddError(ErrorEvent{Crate: "widget", Err: errors.New("boom"), IsWarn: false})
	r.AddError(ErrorEvent{Crate: "gadget", Err: errors.New("careful"), IsWarn: true})

	out := buf.String()
	assert.Contains(t, out, "ERROR: widget: boom")
	assert.Contains(t, out, "WARN: gadget: careful")
}

func TestPlainRenderer_Complete_SummarizesCounts(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(Config{Output: &buf})

	r.Complete(CompletionStats{Crates: 10, Ok: 9, Failed: 1})

	out := buf.String()
	assert.Contains(t, out, "10 crates")
	assert.Contains(t, out, "9 ok")
	assert.Contains(t, out, "1 failed")
}

func TestStage_StringAndIcon(t *testing.T) {
	assert.Equal(t, "Extract", StageExtract.String())
	assert.Equal(t, "EXTRACT", StageExtract.Icon())
	assert.Equal(t, "Unknown", Stage(99).String())
}
