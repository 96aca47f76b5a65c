package dedupe

import (
	"go.uber.org/zap"

	"github.com/sells-group/leadhunter/internal/model"
)

// Stats summarises one reconcile pass.
type Stats struct {
	Original    int `json:"original"`
	Unique      int `json:"unique"`
	Removed     int `json:"removed"`
	PhoneJoins  int `json:"phone_joins"`
	NameJoins   int `json:"name_joins"`
	SharedNames int `json:"shared_names"`
}

type slot struct {
	rec   model.BusinessRecord
	phone string
	name  string
	dead  bool
}

// reconciler holds the state of a single pass. Keys map to output positions,
// so replacing a slot repoints every key that referenced it.
type reconciler struct {
	out   []slot
	phone map[string]int
	name  map[string]int
	stats Stats
}

// Reconcile deduplicates records in one ordered pass. A later record that
// wins a join takes the loser's position; records with neither a phone nor a
// name key are always kept. Reconcile is deterministic and idempotent.
func Reconcile(records []model.BusinessRecord) []model.BusinessRecord {
	out, _ := ReconcileWithStats(records)
	return out
}

// ReconcileWithStats is Reconcile plus counts of what was merged.
func ReconcileWithStats(records []model.BusinessRecord) ([]model.BusinessRecord, Stats) {
	r := &reconciler{
		out:   make([]slot, 0, len(records)),
		phone: make(map[string]int),
		name:  make(map[string]int),
	}
	for _, rec := range records {
		r.add(slot{rec: rec, phone: NormalizePhone(rec.Phone), name: NormalizeName(rec.Name)})
	}

	result := make([]model.BusinessRecord, 0, len(r.out))
	for _, s := range r.out {
		if !s.dead {
			result = append(result, s.rec)
		}
	}

	r.stats.Original = len(records)
	r.stats.Unique = len(result)
	r.stats.Removed = len(records) - len(result)
	return result, r.stats
}

func (r *reconciler) add(s slot) {
	if s.phone != "" {
		if i, ok := r.phone[s.phone]; ok {
			r.stats.PhoneJoins++
			r.joinPhone(i, s)
			return
		}
	}

	if s.name != "" {
		if j, ok := r.name[s.name]; ok {
			r.joinName(j, s)
			return
		}
	}

	r.place(s)
}

// joinPhone settles R against the record already holding its phone. Only a
// strictly higher rating displaces the holder.
func (r *reconciler) joinPhone(i int, s slot) {
	held := r.out[i]
	if s.rec.RatingValue() <= held.rec.RatingValue() {
		return
	}

	zap.L().Debug("dedupe: phone join replaced record",
		zap.String("phone", s.phone),
		zap.String("kept", s.rec.Name),
		zap.String("dropped", held.rec.Name),
	)
	r.out[i] = s
	if held.name != s.name {
		r.reindexName(held.name)
		r.claimName(i, s)
	}
}

// claimName registers the winner at position i under its name. A different
// phoneless holder of that name loses to the winner's phone; a holder with
// its own phone is a distinct business and stays.
func (r *reconciler) claimName(i int, s slot) {
	if s.name == "" {
		return
	}
	j, ok := r.name[s.name]
	if !ok {
		r.name[s.name] = i
		return
	}
	if j == i || r.out[j].phone != "" {
		return
	}
	r.out[j].dead = true
	r.name[s.name] = i
}

// joinName settles R against the record already holding its name.
func (r *reconciler) joinName(j int, s slot) {
	held := r.out[j]
	if s.phone != "" && held.phone != "" && s.phone != held.phone {
		r.stats.SharedNames++
		r.place(s)
		return
	}

	r.stats.NameJoins++
	if !outranks(s, held) {
		return
	}
	zap.L().Debug("dedupe: name join replaced record",
		zap.String("name", s.name),
		zap.Int("position", j),
	)
	r.out[j] = s
	if s.phone != "" {
		r.phone[s.phone] = j
	}
}

// outranks applies the name-join priority: having a phone beats not having
// one, then the higher rating wins. A full tie keeps the existing record.
func outranks(s, held slot) bool {
	if (s.phone != "") != (held.phone != "") {
		return s.phone != ""
	}
	return s.rec.RatingValue() > held.rec.RatingValue()
}

// place appends s and registers any keys not already taken.
func (r *reconciler) place(s slot) {
	k := len(r.out)
	r.out = append(r.out, s)
	if s.phone != "" {
		r.phone[s.phone] = k
	}
	if s.name != "" {
		if _, ok := r.name[s.name]; !ok {
			r.name[s.name] = k
		}
	}
}

// reindexName points name at the first live slot still carrying it, or
// forgets it when none does.
func (r *reconciler) reindexName(name string) {
	if name == "" {
		return
	}
	for k, s := range r.out {
		if !s.dead && s.name == name {
			r.name[name] = k
			return
		}
	}
	delete(r.name, name)
}
