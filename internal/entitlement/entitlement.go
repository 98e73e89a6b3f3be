// Package entitlement maps subscription tiers to what a member may use.
package entitlement

import "ipurpose/api/internal/forms"

type Tier string
type Action string

const (
	TierFree        Tier = "free"
	TierStarter     Tier = "starter"
	TierBlueprint   Tier = "blueprint"
	TierAccelerator Tier = "accelerator"
)

const (
	ActionJournal  Action = "journal"
	ActionCheckIn  Action = "checkin"
	ActionClarity  Action = "clarity"
	ActionSearch   Action = "search"
	ActionExport   Action = "export"
	ActionVersions Action = "versions"
)

var rank = map[Tier]int{
	TierFree:        0,
	TierStarter:     1,
	TierBlueprint:   2,
	TierAccelerator: 3,
}

var actionTier = map[Action]Tier{
	ActionJournal:  TierFree,
	ActionCheckIn:  TierFree,
	ActionClarity:  TierFree,
	ActionSearch:   TierFree,
	ActionExport:   TierStarter,
	ActionVersions: TierBlueprint,
}

var formTier = map[string]Tier{
	forms.DailySession: TierFree,
	forms.Offers:       TierStarter,
	forms.Blueprint:    TierBlueprint,
	forms.Monetization: TierAccelerator,
}

// Normalize maps unknown tiers to free.
func Normalize(tier string) Tier {
	if _, ok := rank[Tier(tier)]; ok {
		return Tier(tier)
	}
	return TierFree
}

// AtLeast reports whether tier includes required.
func AtLeast(tier, required Tier) bool {
	return rank[Normalize(string(tier))] >= rank[Normalize(string(required))]
}

func Can(tier Tier, action Action) bool {
	required, ok := actionTier[action]
	if !ok {
		return false
	}
	return AtLeast(tier, required)
}

// RequiredForForm returns the lowest tier that opens a form. Forms not
// listed are free.
func RequiredForForm(formKey string) Tier {
	if tier, ok := formTier[formKey]; ok {
		return tier
	}
	return TierFree
}

func CanOpenForm(tier Tier, formKey string) bool {
	return AtLeast(tier, RequiredForForm(formKey))
}

// RequiredFor returns the tier an action needs.
func RequiredFor(action Action) Tier {
	return actionTier[action]
}
