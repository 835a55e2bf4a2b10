// Package export encodes analytics snapshots for download.
package export

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/huangang/issuepulse/internal/analytics"
)

// Encoder renders a snapshot in one output format.
type Encoder interface {
	// Name returns the format name (json, csv, xlsx).
	Name() string
	ContentType() string
	Extension() string
	Encode(w io.Writer, snapshot *analytics.AnalyticsSnapshot) error
}

// Export is an encoded snapshot ready to be served as a file.
type Export struct {
	Payload     []byte
	ContentType string
	Filename    string
}

// Exporter dispatches to the registered encoders by format name.
type Exporter struct {
	encoders map[string]Encoder
}

// New creates an Exporter with the json, csv and xlsx encoders. When formats
// is non-empty only the named encoders are enabled.
func New(formats ...string) *Exporter {
	all := []Encoder{JSONEncoder{}, CSVEncoder{}, XLSXEncoder{}}
	e := &Exporter{encoders: make(map[string]Encoder, len(all))}
	for _, enc := range all {
		if len(formats) == 0 || contains(formats, enc.Name()) {
			e.encoders[enc.Name()] = enc
		}
	}
	return e
}

// Formats returns the enabled format names in sorted order.
func (e *Exporter) Formats() []string {
	names := make([]string, 0, len(e.encoders))
	for name := range e.encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether format is enabled.
func (e *Exporter) Supports(format string) bool {
	_, ok := e.encoders[format]
	return ok
}

// Encode renders snapshot as format. The filename embeds the snapshot's
// range token and the date of now.
func (e *Exporter) Encode(snapshot *analytics.AnalyticsSnapshot, format string, now time.Time) (*Export, error) {
	enc, ok := e.encoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", analytics.ErrUnsupportedFormat, format)
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, snapshot); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}

	return &Export{
		Payload:     buf.Bytes(),
		ContentType: enc.ContentType(),
		Filename:    Filename(snapshot.Range, now, enc.Extension()),
	}, nil
}

// Filename builds the download name for an export.
func Filename(rangeToken string, now time.Time, ext string) string {
	if rangeToken == "" {
		rangeToken = "custom"
	}
	return fmt.Sprintf("issue-analytics-%s-%s.%s", rangeToken, now.Format(analytics.DateLayout), ext)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
