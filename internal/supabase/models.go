package supabase

const (
	ItemTypeTask = "task"
	ItemTypePlan = "plan"

	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Item is a row of the hosted items table.
type Item struct {
	ID           string    `json:"id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Content      string    `json:"content"`
	ContentType  string    `json:"content_type"`
	ItemType     string    `json:"item_type"`
	Category     string    `json:"category"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
	IsActionable bool      `json:"is_actionable"`
	ContextTags  []string  `json:"context_tags"`
	AIGenerated  bool      `json:"ai_generated"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

// NewPlanItem wraps rendered plan text as a non-actionable plan item.
func NewPlanItem(userID, content string) Item {
	return Item{
		UserID:       userID,
		Content:      content,
		ContentType:  "text",
		ItemType:     ItemTypePlan,
		Category:     "personal",
		Priority:     "medium",
		Status:       StatusActive,
		IsActionable: false,
		ContextTags:  []string{},
		AIGenerated:  true,
	}
}

// postgrestError is the error body PostgREST returns.
type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}
