package navigate

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadhunter/internal/extract"
)

// FixtureEntity is one recorded entity in an entities.json file.
type FixtureEntity struct {
	Text      string            `json:"text"`
	Permalink string            `json:"permalink"`
	Handles   []extract.Element `json:"handles,omitempty"`
}

// Fixture navigates entities recorded as JSON.
type Fixture struct {
	entities []FixtureEntity
}

// NewFixture creates a navigator over in-memory entities.
func NewFixture(entities []FixtureEntity) *Fixture {
	return &Fixture{entities: entities}
}

// LoadFixture reads an entities.json file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "navigate: read fixture %s", path)
	}
	var entities []FixtureEntity
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, eris.Wrapf(err, "navigate: decode fixture %s", path)
	}
	return NewFixture(entities), nil
}

// Count returns the number of recorded entities.
func (f *Fixture) Count(context.Context) (int, error) {
	return len(f.entities), nil
}

// Visit returns the i-th recorded entity.
func (f *Fixture) Visit(ctx context.Context, i int) (extract.Scope, error) {
	if err := ctx.Err(); err != nil {
		return extract.Scope{}, err
	}
	if i < 0 || i >= len(f.entities) {
		return extract.Scope{}, eris.Errorf("navigate: entity %d out of range", i)
	}
	e := f.entities[i]
	if e.Text == "" && len(e.Handles) == 0 {
		return extract.Scope{}, ErrNoContent
	}
	return extract.Scope{
		Text:      e.Text,
		Handles:   extract.Elements(e.Handles),
		Permalink: e.Permalink,
	}, nil
}
