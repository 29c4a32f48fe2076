package roiconv

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewLogger(&buf, log.DebugLevel))
	defer SetLogger(nil)

	data := AnnotatedImages{{ROIs: []ROI{NewROI("", NewPoint(0, 0, WithLabel("a")))}}}
	assert.NoError(t, data.MapLabels([]string{"a=b"}))
	assert.Contains(t, buf.String(), "The label mappings changed 1 labels")

	newProgress().done("Finished", "images", 3)
	assert.Contains(t, buf.String(), "Finished")
	assert.Contains(t, buf.String(), "elapsed")

	SetLogger(nil)
	assert.Same(t, log.Default(), logger())
}

func TestSetLoggerConcurrent(t *testing.T) {
	defer SetLogger(nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetLogger(NewLogger(io.Discard, log.DebugLevel))
		}()
		go func() {
			defer wg.Done()
			logger().Debug("Concurrent write")
		}()
	}
	wg.Wait()
	assert.NotNil(t, logger())
}
