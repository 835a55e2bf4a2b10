package export

import (
	"encoding/json"
	"io"

	"github.com/huangang/issuepulse/internal/analytics"
)

// JSONEncoder writes the full snapshot as indented JSON.
type JSONEncoder struct{}

func (JSONEncoder) Name() string        { return "json" }
func (JSONEncoder) ContentType() string { return "application/json" }
func (JSONEncoder) Extension() string   { return "json" }

func (JSONEncoder) Encode(w io.Writer, snapshot *analytics.AnalyticsSnapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snapshot)
}
