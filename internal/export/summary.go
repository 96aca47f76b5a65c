package export

import (
	"fmt"

	"github.com/sells-group/leadhunter/internal/model"
)

// Summary describes an export: how much reconciliation removed and how often
// each field was found in the raw batch.
type Summary struct {
	Original        int `json:"original"`
	Unique          int `json:"unique"`
	Removed         int `json:"removed"`
	WithRating      int `json:"with_rating"`
	WithPhone       int `json:"with_phone"`
	WithCoordinates int `json:"with_coordinates"`
	WithWebsite     int `json:"with_website"`
	WithAddress     int `json:"with_address"`
	AIExtracted     int `json:"ai_extracted"`
}

// Summarize counts field hits over raw and compares it with unique.
func Summarize(raw, unique []model.BusinessRecord) Summary {
	s := Summary{Original: len(raw), Unique: len(unique), Removed: len(raw) - len(unique)}
	for _, r := range raw {
		if r.Rating != nil {
			s.WithRating++
		}
		if !model.IsSentinel(r.Phone) {
			s.WithPhone++
		}
		if _, _, ok := r.Coordinates(); ok {
			s.WithCoordinates++
		}
		if !model.IsSentinel(r.Website) {
			s.WithWebsite++
		}
		if !model.IsSentinel(r.Address) {
			s.WithAddress++
		}
		if r.Method == model.MethodAI {
			s.AIExtracted++
		}
	}
	return s
}

// Rate formats n as a percentage of the original count.
func (s Summary) Rate(n int) string {
	if s.Original == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)*100/float64(s.Original))
}
