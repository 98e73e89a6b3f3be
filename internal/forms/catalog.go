package forms

import "fmt"

const (
	DailySession = "daily-session"
	Blueprint    = "blueprint"
	Offers       = "offers"
	Monetization = "monetization"
)

// Emotions offered by the daily check-in and the journal's mood step.
var Emotions = []string{
	"Inspired", "Energized", "Grateful", "Calm", "Focused",
	"Uncertain", "Overwhelmed", "Tired", "Anxious", "Frustrated",
}

var catalog = []Schema{
	{
		Key:         DailySession,
		Title:       "Daily Session",
		Description: "A short guided journal to arrive, reflect and choose one aligned action.",
		Steps: []Step{
			{
				Key:    "arrive",
				Title:  "Arrive",
				Prompt: "Pause for a breath. What is present for you right now?",
				Fields: []Field{
					{Key: "intention", Label: "Today's intention", Variant: VariantText, Placeholder: "I want to feel..."},
					{Key: "mood", Label: "How are you feeling?", Variant: VariantCheckboxes, Options: Emotions},
				},
			},
			{
				Key:    "reflect",
				Title:  "Reflect",
				Prompt: "Look at what is alive in your work and your life.",
				Fields: []Field{
					{Key: "whats_alive", Label: "What feels most alive right now?", Variant: VariantText},
					{Key: "whats_heavy", Label: "What feels heavy?", Variant: VariantText},
				},
			},
			{
				Key:    "integrate",
				Title:  "Integrate",
				Prompt: "Choose one thing to carry into the day.",
				Fields: []Field{
					{Key: "aligned_action", Label: "One aligned action", Variant: VariantText},
					{Key: "gratitude", Label: "One thing you are grateful for", Variant: VariantText},
				},
			},
		},
	},
	{
		Key:         Blueprint,
		Title:       "AI Blueprint",
		Description: "Decide where AI belongs in your business and where it never will.",
		Steps: []Step{
			{
				Key:    "foundation",
				Title:  "Foundation",
				Prompt: "Name the purpose your business serves before choosing any tool.",
				Fields: []Field{
					{Key: "purpose_statement", Label: "Purpose statement", Variant: VariantText},
					{Key: "ideal_client", Label: "Who you serve", Variant: VariantText},
				},
			},
			{
				Key:    "boundaries",
				Title:  "AI Boundaries",
				Prompt: "For each area of your business, note what stays human and what AI may carry.",
				Fields: []Field{
					{
						Key:     "ai_boundaries",
						Label:   "AI boundaries",
						Variant: VariantGrid,
						Rows:    []string{"Client Communication", "Content Creation", "Scheduling & Admin", "Strategy & Decisions"},
						Columns: []string{"Stays Human", "AI Assists", "AI Leads"},
					},
				},
			},
			{
				Key:    "toolkit",
				Title:  "Toolkit",
				Prompt: "Choose the tools you are willing to try this quarter.",
				Fields: []Field{
					{
						Key:     "ai_tools",
						Label:   "Tools",
						Variant: VariantCheckboxes,
						Options: []string{"Writing assistant", "Meeting notes", "Image generation", "Email triage", "Research assistant"},
					},
					{Key: "first_experiment", Label: "First experiment", Variant: VariantText},
				},
			},
		},
	},
	{
		Key:         Offers,
		Title:       "Offer Architecture",
		Description: "Shape an offer ladder that leads clients from first contact to deep work.",
		Steps: []Step{
			{
				Key:    "core_offer",
				Title:  "Core Offer",
				Prompt: "Describe the transformation at the heart of your work.",
				Fields: []Field{
					{Key: "offer_name", Label: "Offer name", Variant: VariantText},
					{Key: "transformation", Label: "Transformation promised", Variant: VariantText},
				},
			},
			{
				Key:    "ladder",
				Title:  "Offer Ladder",
				Prompt: "Fill in each rung of the ladder.",
				Fields: []Field{
					{
						Key:     "offer_ladder",
						Label:   "Offer ladder",
						Variant: VariantGrid,
						Rows:    []string{"Entry", "Core", "Premium"},
						Columns: []string{"Offer", "Price", "Format"},
					},
				},
			},
			{
				Key:    "delivery",
				Title:  "Delivery",
				Fields: []Field{
					{
						Key:     "delivery_modes",
						Label:   "Delivery modes",
						Variant: VariantCheckboxes,
						Options: []string{"One-on-one", "Group", "Self-paced", "Live workshop", "Retreat"},
					},
				},
			},
		},
	},
	{
		Key:         Monetization,
		Title:       "Monetization",
		Description: "Set revenue targets per stream and track where you stand.",
		Steps: []Step{
			{
				Key:    "goals",
				Title:  "Revenue Goals",
				Fields: []Field{
					{Key: "annual_goal", Label: "Annual revenue goal", Variant: VariantText},
					{Key: "why_this_number", Label: "Why this number?", Variant: VariantText},
				},
			},
			{
				Key:    "streams",
				Title:  "Revenue Streams",
				Prompt: "Set a monthly target for each stream and note where you are today.",
				Fields: []Field{
					{
						Key:     "revenue_streams",
						Label:   "Revenue streams",
						Variant: VariantGrid,
						Rows:    []string{"One-on-One", "Group Program", "Digital Products", "Speaking"},
						Columns: []string{"Monthly Target", "Current"},
					},
				},
			},
			{
				Key:   "pricing",
				Title: "Pricing",
				Fields: []Field{
					{Key: "pricing_notes", Label: "Pricing decisions", Variant: VariantText},
				},
			},
		},
	},
}

func Lookup(key string) (Schema, error) {
	for _, schema := range catalog {
		if schema.Key == key {
			return schema, nil
		}
	}
	return Schema{}, fmt.Errorf("%w: %s", ErrUnknownForm, key)
}

// All returns the registered schemas in catalogue order.
func All() []Schema {
	out := make([]Schema, len(catalog))
	copy(out, catalog)
	return out
}
