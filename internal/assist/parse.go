package assist

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadhunter/internal/extract"
	"github.com/sells-group/leadhunter/internal/model"
)

// ErrNoJSON is returned when a reply holds no JSON object.
var ErrNoJSON = eris.New("assist: reply has no JSON object")

// replyKeys maps reply keys to the fields they suggest.
var replyKeys = map[string]extract.Field{
	"store_name":    extract.FieldName,
	"name":          extract.FieldName,
	"rating":        extract.FieldRating,
	"reviews_count": extract.FieldReviewCount,
	"phone":         extract.FieldPhone,
	"phone_number":  extract.FieldPhone,
	"address":       extract.FieldAddress,
	"hours":         extract.FieldHours,
	"website":       extract.FieldWebsite,
}

// ParseSuggestion reads the first JSON object out of a model reply. Replies
// that are not valid JSON are repaired before giving up. Sentinel and empty
// values are dropped.
func ParseSuggestion(reply string) (extract.Suggestions, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 {
		return nil, ErrNoJSON
	}
	body := reply[start:]
	if end > start {
		body = reply[start : end+1]
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(body)
		if rerr != nil {
			return nil, eris.Wrapf(err, "assist: decode reply (repair failed: %v)", rerr)
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return nil, eris.Wrap(err, "assist: decode repaired reply")
		}
	}

	out := make(extract.Suggestions, len(raw))
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		v := raw[k]
		field, ok := replyKeys[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			continue
		}
		s := stringify(v)
		if model.IsSentinel(s) {
			continue
		}
		if _, taken := out[field]; !taken {
			out[field] = s
		}
	}
	return out, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool, nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
