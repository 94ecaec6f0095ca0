package generation

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"lifetree-backend/application/ports"
)

// lifeEvent is one templated branch outcome.
type lifeEvent struct {
	title  string
	change string
	career string
	moves  bool
}

var lifeEvents = []lifeEvent{
	{
		title:  "Accepts a new role at a growing startup",
		change: "Left a stable position for equity and a louder office.",
		career: "software engineer",
	},
	{
		title:  "Moves across the country for a fresh start",
		change: "Packed two suitcases, sold the rest, and signed a lease unseen.",
		moves:  true,
	},
	{
		title:  "Goes back to school for a second degree",
		change: "Traded a salary for seminars and a student discount.",
		career: "graduate student",
	},
	{
		title:  "Starts a small business with an old friend",
		change: "The spare room became an office and weekends became inventory days.",
		career: "small business owner",
	},
	{
		title:  "Takes a sabbatical to travel",
		change: "Six months, one backpack, and a loose itinerary.",
		career: "on sabbatical",
	},
	{
		title:  "Buys a first home in the suburbs",
		change: "The commute doubled and so did the closet space.",
		moves:  true,
	},
	{
		title:  "Switches careers into a creative field",
		change: "Evening classes finally turned into a portfolio and a first client.",
		career: "graphic designer",
	},
	{
		title:  "Takes on a demanding promotion",
		change: "More direct reports, more meetings, and a corner desk.",
	},
	{
		title:  "Downshifts to part-time work",
		change: "Fewer hours bought back mornings and a long-postponed hobby.",
	},
	{
		title:  "Relocates abroad for a partner's opportunity",
		change: "New language, new paperwork, and a flat above a bakery.",
		moves:  true,
	},
}

var cities = []string{
	"Portland", "Austin", "Chicago", "Denver",
	"Seattle", "Atlanta", "Minneapolis", "Raleigh",
}

var relationshipSteps = map[string][]string{
	"single":   {"single", "dating"},
	"dating":   {"dating", "engaged", "single"},
	"engaged":  {"engaged", "married"},
	"married":  {"married", "married", "divorced"},
	"divorced": {"divorced", "dating"},
}

var livingSituations = []string{
	"renting an apartment downtown",
	"sharing a house with roommates",
	"renting a quiet studio",
	"owning a condo near the park",
	"living in a small house with a garden",
}

// LocalScenarioGenerator produces plausible follow-up scenarios without an
// external service. Output is deterministic for a given seed and ancestry,
// which keeps tests and the offline CLI reproducible.
type LocalScenarioGenerator struct {
	seed  int64
	delay time.Duration
}

// NewLocalScenarioGenerator creates a local generator. A non-zero delay
// spaces out record emission to mimic a streaming service.
func NewLocalScenarioGenerator(seed int64, delay time.Duration) *LocalScenarioGenerator {
	return &LocalScenarioGenerator{
		seed:  seed,
		delay: delay,
	}
}

// Generate emits count scenario variations branching from the last
// ancestry record.
func (g *LocalScenarioGenerator) Generate(ctx context.Context, ancestry []ports.ScenarioRecord, count int, emit func(ports.ScenarioRecord)) error {
	if len(ancestry) == 0 {
		return fmt.Errorf("ancestry must not be empty")
	}
	parent := ancestry[len(ancestry)-1]
	rng := rand.New(rand.NewSource(g.seed ^ int64(hashAncestry(ancestry))))

	// Each slot draws a distinct event so siblings read as alternatives,
	// not repeats.
	order := rng.Perm(len(lifeEvents))

	for i := 0; i < count; i++ {
		if g.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.delay):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		event := lifeEvents[order[i%len(order)]]
		emit(g.record(rng, parent, event))
	}
	return nil
}

// record derives one child scenario from the parent.
func (g *LocalScenarioGenerator) record(rng *rand.Rand, parent ports.ScenarioRecord, event lifeEvent) ports.ScenarioRecord {
	rec := ports.ScenarioRecord{
		Title:              event.title,
		ChangeDescription:  event.change,
		AgeYears:           parent.AgeYears + 1 + rng.Intn(3),
		AgeWeeks:           rng.Intn(52),
		Location:           parent.Location,
		RelationshipStatus: nextRelationship(rng, parent.RelationshipStatus),
		LivingSituation:    livingSituations[rng.Intn(len(livingSituations))],
		CareerStatus:       parent.CareerStatus,
		MonthlyIncome:      parent.MonthlyIncome * (0.85 + rng.Float64()*0.45),
	}
	if event.moves || rec.Location == "" {
		rec.Location = cities[rng.Intn(len(cities))]
	}
	if event.career != "" {
		rec.CareerStatus = event.career
	}
	return rec
}

// nextRelationship walks one step in the relationship progression.
func nextRelationship(rng *rand.Rand, current string) string {
	steps, ok := relationshipSteps[current]
	if !ok {
		if current != "" {
			return current
		}
		return "single"
	}
	return steps[rng.Intn(len(steps))]
}

// hashAncestry folds the ancestry chain into a stable seed component.
func hashAncestry(ancestry []ports.ScenarioRecord) uint64 {
	h := fnv.New64a()
	for _, rec := range ancestry {
		fmt.Fprintf(h, "%s|%d|%d;", rec.Title, rec.AgeYears, rec.AgeWeeks)
	}
	return h.Sum64()
}

// LocalPortraitGenerator returns a stable placeholder handle derived from
// the request, standing in for a rendering service.
type LocalPortraitGenerator struct{}

// NewLocalPortraitGenerator creates a local portrait generator
func NewLocalPortraitGenerator() *LocalPortraitGenerator {
	return &LocalPortraitGenerator{}
}

// GeneratePortrait returns a deterministic placeholder URL
func (g *LocalPortraitGenerator) GeneratePortrait(ctx context.Context, req ports.PortraitRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d|%s|%s|%s|%s|%s|%s",
		req.SessionID, req.NodeID, req.AgeYears,
		req.Appearance.HairColor, req.Appearance.HairStyle,
		req.Appearance.EyeColor, req.Appearance.SkinTone,
		req.Appearance.Build, req.Appearance.ClothingStyle,
	)
	return fmt.Sprintf("local://portraits/%016x", h.Sum64()), nil
}
