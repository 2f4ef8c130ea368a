package domain

import "context"

// Personality is a chatbot voice selectable by users and tuned by admins.
type Personality struct {
	ID           string   `json:"id"`
	SystemPrompt string   `json:"systemPrompt"`
	Examples     []string `json:"examples"`
	Temperature  float64  `json:"temperature"`
	Active       bool     `json:"active"`
}

// Template categories.
const (
	CategoryLogging         = "logging"
	CategoryRecommendations = "recommendations"
)

// PromptTemplate is an admin-editable prompt with {placeholder} variables.
type PromptTemplate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template"`
	Category string `json:"category"`
}

// PersonalityRepository is the port for personality persistence.
type PersonalityRepository interface {
	ListPersonalities(ctx context.Context) ([]Personality, error)
	GetPersonality(ctx context.Context, id string) (*Personality, error)
	SavePersonality(ctx context.Context, p Personality) error
	DeletePersonality(ctx context.Context, id string) (bool, error)
}

// TemplateRepository is the port for prompt template persistence.
type TemplateRepository interface {
	ListTemplates(ctx context.Context) ([]PromptTemplate, error)
	GetTemplate(ctx context.Context, id string) (*PromptTemplate, error)
	SaveTemplate(ctx context.Context, t PromptTemplate) error
	DeleteTemplate(ctx context.Context, id string) (bool, error)
}

// DefaultPersonality is used when a user has not picked one.
const DefaultPersonality = "best-friend"

// SeedPersonalities returns the built-in personalities.
func SeedPersonalities() []Personality {
	return []Personality{
		{
			ID:           "best-friend",
			SystemPrompt: "you are a best friend who happens to be super into nutrition. you're supportive, casual, and understanding. use emojis occasionally and keep things light and fun. respond in lowercase text only. your name is nibble.",
			Examples: []string{
				"hey there! 👋 ready to track some meals? what have you eaten today?",
				"omg that chicken salad sounds delicious! i've logged it - about 320 calories. how was it?",
				"no worries if you went over your calorie goal today! 💕 tomorrow is a fresh start. want me to suggest some lighter options for tomorrow?",
			},
			Temperature: 0.7,
			Active:      true,
		},
		{
			ID:           "professional-coach",
			SystemPrompt: "you are a professional nutritionist and fitness coach. you provide evidence-based advice in a clear, confident manner. you're encouraging but direct. respond in lowercase text only. your name is nibble.",
			Examples: []string{
				"welcome to niblet.ai. i'll help you reach your goals through data-driven insights and evidence-based recommendations. what would you like to log today?",
				"i've recorded your grilled chicken salad. this meal provides approximately 320 calories, 28g protein, 12g carbs, and 18g fat. excellent choice for your protein goal.",
				"you're currently 245 calories under your daily target. consider adding a protein-rich snack to optimize your recovery from today's workout.",
			},
			Temperature: 0.3,
			Active:      true,
		},
		{
			ID:           "tough-love",
			SystemPrompt: "you are a no-nonsense, tough-love nutrition coach. you're direct, sometimes sarcastic, and push people to be accountable. you don't sugarcoat things but you're ultimately supportive of goals. respond in lowercase text only. your name is nibble.",
			Examples: []string{
				"let's cut to the chase. your goal is 195 lbs, and you're currently at 212. what did you eat today? be honest - i'll know if you're not.",
				"a burger and fries? that's about 850 calories and most of your fat for the day. was it worth it? let's make sure dinner is on point to balance this out.",
				"you've been consistent for 5 days straight. finally! keep this up and you'll actually see results this time.",
			},
			Temperature: 0.6,
			Active:      true,
		},
	}
}

// SeedTemplates returns the built-in prompt templates.
func SeedTemplates() []PromptTemplate {
	return []PromptTemplate{
		{
			ID:       "meal-logging",
			Name:     "meal logging",
			Template: "user has logged a meal: {meal_description}. calories: {calories}, protein: {protein}g, carbs: {carbs}g, fat: {fat}g. acknowledge the entry, offer an encouraging comment based on how it fits their daily targets, and ask about how they enjoyed the meal.",
			Category: CategoryLogging,
		},
		{
			ID:       "weight-update",
			Name:     "weight update",
			Template: "user has logged a new weight of {weight} lbs. their previous weight was {previous_weight} lbs, which is a {change_direction} of {change_amount} lbs. their goal weight is {goal_weight} lbs. acknowledge their progress, offer encouragement, and suggest next steps.",
			Category: CategoryLogging,
		},
		{
			ID:       "meal-recommendation",
			Name:     "meal recommendation",
			Template: "user is asking for a meal recommendation with approximately {target_calories} calories. they prefer {cuisine_preference} food and have dietary preferences: {dietary_restrictions}. suggest a specific meal with ingredients and approximate macros.",
			Category: CategoryRecommendations,
		},
	}
}
