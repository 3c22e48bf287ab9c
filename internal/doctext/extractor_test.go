package doctext

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/backend/internal/common"
)

// stubRunner returns canned output per binary name.
type stubRunner struct {
	stdout map[string][]byte
	errs   map[string]error
	calls  []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	if err, ok := s.errs[name]; ok && err != nil {
		return nil, []byte("boom"), err
	}
	return s.stdout[name], nil, nil
}

func newTestExtractor(r Runner) *Extractor {
	e := NewExtractor(Config{}, nil)
	e.runner = r
	return e
}

func TestExtractTextLayer(t *testing.T) {
	r := &stubRunner{stdout: map[string][]byte{
		"pdftotext": []byte("Offer 4711\nVendor GmbH\f\nPage two\n"),
	}}
	e := newTestExtractor(r)

	res, err := e.Extract(context.Background(), "/tmp/offer.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, 2, res.Pages)
	// pages joined with a single newline, form feeds gone
	assert.Equal(t, "Offer 4711\nVendor GmbH\nPage two", res.Text)
	assert.Equal(t, []string{"pdftotext"}, r.calls)
}

func TestExtractToolFailureIsUnreadable(t *testing.T) {
	r := &stubRunner{errs: map[string]error{
		"pdftotext": fmt.Errorf("exit status 1"),
	}}
	e := newTestExtractor(r)

	_, err := e.Extract(context.Background(), "/tmp/corrupt.pdf")
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeUnreadableDocument))
}

func TestExtractEmptyTextFallsBackToOCRAndFails(t *testing.T) {
	// text layer empty and rasterization yields nothing -> unreadable
	r := &stubRunner{
		stdout: map[string][]byte{"pdftotext": []byte("  \f  ")},
		errs:   map[string]error{"pdftoppm": fmt.Errorf("exit status 1")},
	}
	e := newTestExtractor(r)

	_, err := e.Extract(context.Background(), "/tmp/scan.pdf")
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeUnreadableDocument))
	assert.Contains(t, r.calls, "pdftoppm")
}

func TestJoinPages(t *testing.T) {
	assert.Equal(t, "a\nb", joinPages("a\f\nb"))
	assert.Equal(t, "a", joinPages("a\f\f  \f"))
	assert.Equal(t, "", joinPages("\f\f"))
}
