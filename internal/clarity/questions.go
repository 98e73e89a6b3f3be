package clarity

type Statement struct {
	Dimension Dimension `json:"dimension"`
	Text      string    `json:"text"`
}

type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type Choice struct {
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

type Questionnaire struct {
	Scale      []string    `json:"scale"`
	Statements []Statement `json:"statements"`
	Choices    []Choice    `json:"choices"`
}

var questionnaire = Questionnaire{
	Scale: []string{"Strongly disagree", "Disagree", "Neutral", "Agree", "Strongly agree"},
	Statements: []Statement{
		{DimensionPurpose, "I can describe the purpose of my work in one sentence."},
		{DimensionPurpose, "I know who I am here to serve."},
		{DimensionPurpose, "My daily work reflects what matters most to me."},
		{DimensionSelf, "I trust my own judgment when making business decisions."},
		{DimensionSelf, "I can hold a boundary without overexplaining it."},
		{DimensionSelf, "I recover quickly when something does not go to plan."},
		{DimensionCapacity, "I end most weeks with energy left over."},
		{DimensionCapacity, "My schedule has room for rest."},
		{DimensionCapacity, "I rarely feel stretched across too many commitments."},
		{DimensionAction, "I follow through on the priorities I set."},
		{DimensionAction, "My offers and pricing match the value I create."},
		{DimensionAction, "I take small steps toward my goals every week."},
	},
	Choices: []Choice{
		{
			Prompt: "When you start something new, you first...",
			Options: []Option{
				{"A", "Picture where it could lead"},
				{"B", "Sketch the first version"},
				{"C", "Think about who it will help"},
				{"D", "Map the steps and risks"},
				{"E", "Play with ideas until one sparks"},
			},
		},
		{
			Prompt: "Clients come to you most for...",
			Options: []Option{
				{"A", "Big-picture direction"},
				{"B", "Getting things built"},
				{"C", "Care and support"},
				{"D", "A clear plan"},
				{"E", "Fresh perspective"},
			},
		},
		{
			Prompt: "Your energy drops fastest when...",
			Options: []Option{
				{"A", "There is no vision to work toward"},
				{"B", "Nothing gets finished"},
				{"C", "People feel unseen"},
				{"D", "Decisions are made without data"},
				{"E", "Everything is routine"},
			},
		},
		{
			Prompt: "A perfect workday ends with...",
			Options: []Option{
				{"A", "A new possibility named"},
				{"B", "Something shipped"},
				{"C", "Someone feeling better"},
				{"D", "A problem solved cleanly"},
				{"E", "Something beautiful made"},
			},
		},
		{
			Prompt: "The word that fits you best is...",
			Options: []Option{
				{"A", "Visionary"},
				{"B", "Builder"},
				{"C", "Nurturer"},
				{"D", "Strategist"},
				{"E", "Creator"},
			},
		},
	},
}

// Questions returns the Clarity Check questionnaire. Statement i feeds
// answer i; choice j feeds choice j.
func Questions() Questionnaire {
	return questionnaire
}
