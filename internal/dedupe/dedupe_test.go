package dedupe

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadhunter/internal/model"
)

func rec(name, phone string, rating float64) model.BusinessRecord {
	r := model.BusinessRecord{Name: name, Phone: phone}
	if rating > 0 {
		r.Rating = model.Float(rating)
	}
	return r
}

func names(rs []model.BusinessRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9876543210", "9876543210"},
		{"+91 98765 43210", "9876543210"},
		{"919876543210", "9876543210"},
		{"09876543210", "9876543210"},
		{"0522-2345678", "5222345678"},
		{"1800123456", ""},
		{"+1800 123 4567", ""},
		{"12345", ""},
		{model.NotFound, ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ABC Traders", "abc traders"},
		{"Abc Traders Pvt. Ltd.", "abc traders"},
		{"  Abc   Traders  Limited ", "abc traders"},
		{"Acme, Inc.", "acme"},
		{"Acme Corporation", "acme"},
		{"Ltd", "ltd"},
		{"ＡＢＣ Traders", "abc traders"},
		{model.UnknownName, ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestReconcile_PhoneTieBreak(t *testing.T) {
	out := Reconcile([]model.BusinessRecord{
		rec("Sharma Sweets", "9876543210", 4.2),
		rec("Sharma Sweets Hazratganj", "+91 98765 43210", 4.7),
	})

	require.Len(t, out, 1)
	assert.InDelta(t, 4.7, out[0].RatingValue(), 1e-9)
	assert.Equal(t, "Sharma Sweets Hazratganj", out[0].Name)
}

func TestReconcile_PhoneJoinKeepsHigherExisting(t *testing.T) {
	out := Reconcile([]model.BusinessRecord{
		rec("First", "9876543210", 4.7),
		rec("Second", "+91 98765 43210", 4.7),
		rec("Third", "09876543210", 3.0),
	})

	assert.Equal(t, []string{"First"}, names(out))
}

func TestReconcile_NameTieBreakNoPhones(t *testing.T) {
	out := Reconcile([]model.BusinessRecord{
		rec("ABC Traders", model.NotFound, 3.9),
		rec("Abc Traders Pvt. Ltd.", model.NotFound, 4.1),
	})

	require.Len(t, out, 1)
	assert.InDelta(t, 4.1, out[0].RatingValue(), 1e-9)
}

func TestReconcile_NameJoinPrefersPhone(t *testing.T) {
	out := Reconcile([]model.BusinessRecord{
		rec("Gupta Store", model.NotFound, 4.9),
		rec("Gupta Store", "9000000001", 3.0),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "9000000001", out[0].Phone)

	out = Reconcile([]model.BusinessRecord{
		rec("Gupta Store", "9000000001", 3.0),
		rec("Gupta Store", model.NotFound, 4.9),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "9000000001", out[0].Phone)
}

func TestReconcile_FullTieKeepsExisting(t *testing.T) {
	first := rec("Gupta Store", model.NotFound, 0)
	first.Address = "first"
	second := rec("GUPTA STORE", model.NotFound, 0)
	second.Address = "second"

	out := Reconcile([]model.BusinessRecord{first, second})

	require.Len(t, out, 1)
	assert.Equal(t, "first", out[0].Address)
}

func TestReconcile_SharedNameDistinctPhones(t *testing.T) {
	out := Reconcile([]model.BusinessRecord{
		rec("City Store", "9000000001", 4.0),
		rec("City Store", "9000000002", 4.5),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "9000000001", out[0].Phone)
	assert.Equal(t, "9000000002", out[1].Phone)
}

func TestReconcile_KeylessRecordsAlwaysKept(t *testing.T) {
	out := Reconcile([]model.BusinessRecord{
		rec(model.UnknownName, model.NotFound, 0),
		rec(model.UnknownName, model.NotFound, 0),
		rec(model.UnknownName, "1800123456", 0),
	})

	assert.Len(t, out, 3)
}

func TestReconcile_TollFreeIsPhoneAbsent(t *testing.T) {
	out := Reconcile([]model.BusinessRecord{
		rec("Helpline Mart", "1800123456", 3.0),
		rec("Other Mart", "1800123456", 4.0),
	})

	assert.Equal(t, []string{"Helpline Mart", "Other Mart"}, names(out))
}

func TestReconcile_ReplacementKeepsPosition(t *testing.T) {
	out := Reconcile([]model.BusinessRecord{
		rec("Alpha", "9000000001", 3.0),
		rec("Beta", "9000000002", 3.0),
		rec("Alpha Branch", "9000000001", 4.5),
		rec("Gamma", "9000000003", 3.0),
	})

	assert.Equal(t, []string{"Alpha Branch", "Beta", "Gamma"}, names(out))
}

func TestReconcile_PhoneWinnerAbsorbsPhonelessNamesake(t *testing.T) {
	out, stats := ReconcileWithStats([]model.BusinessRecord{
		rec("Alpha", "9000000001", 3.0),
		rec("Beta", model.NotFound, 4.0),
		rec("Beta", "9000000001", 4.5),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "Beta", out[0].Name)
	assert.Equal(t, "9000000001", out[0].Phone)
	assert.Equal(t, 3, stats.Original)
	assert.Equal(t, 1, stats.Unique)
	assert.Equal(t, 2, stats.Removed)
}

func TestReconcile_ReleasedNameStillGuardsRemainingHolder(t *testing.T) {
	out := Reconcile([]model.BusinessRecord{
		rec("City Store", "9000000001", 3.0),
		rec("City Store", "9000000002", 3.0),
		rec("Metro Mart", "9000000001", 4.0),
		rec("City Store", model.NotFound, 2.0),
	})

	assert.Equal(t, []string{"Metro Mart", "City Store"}, names(out))
	assert.Equal(t, "9000000002", out[1].Phone)
}

func TestReconcile_Empty(t *testing.T) {
	assert.Empty(t, Reconcile(nil))
}

func TestReconcile_Properties(t *testing.T) {
	batch := syntheticBatch()

	once := Reconcile(batch)
	twice := Reconcile(once)

	assert.LessOrEqual(t, len(once), len(batch))
	assert.Equal(t, once, twice)

	phones := map[string]int{}
	byName := map[string][]string{}
	for _, r := range once {
		if p := NormalizePhone(r.Phone); p != "" {
			phones[p]++
			assert.Equal(t, 1, phones[p], "phone %s repeated", p)
		}
		if n := NormalizeName(r.Name); n != "" {
			byName[n] = append(byName[n], NormalizePhone(r.Phone))
		}
	}
	for n, ps := range byName {
		if len(ps) < 2 {
			continue
		}
		for _, p := range ps {
			assert.NotEmpty(t, p, "name %q shared by a phoneless record", n)
		}
	}
}

// syntheticBatch mixes colliding phones, colliding names and keyless rows.
func syntheticBatch() []model.BusinessRecord {
	var out []model.BusinessRecord
	for i := 0; i < 60; i++ {
		name := fmt.Sprintf("Shop %d", i%7)
		if i%11 == 0 {
			name = model.UnknownName
		}
		phone := model.NotFound
		if i%3 != 0 {
			phone = fmt.Sprintf("+91 90000 %05d", i%9)
		}
		out = append(out, rec(name, phone, float64(i%5)+0.5))
	}
	return out
}
