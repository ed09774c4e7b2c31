// Package assist generates deterministic task and relationship suggestions.
// Everything here is keyword/tag matching against fixed tables with hardcoded
// score weights; there is no model and no randomness, so the same project
// always produces the same output.
package assist

import (
	"fmt"
	"sort"
	"strings"

	"trellis-api/domain"
)

// TaskSuggestion is a proposed starter task for a project.
type TaskSuggestion struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Priority       domain.TaskPriority `json:"priority"`
	EstimatedHours int                 `json:"estimatedHours"`
	Category       string              `json:"category"`
}

// LinkSuggestion is a proposed relationship between two projects.
type LinkSuggestion struct {
	FromProjectID string          `json:"fromProjectId"`
	ToProjectID   string          `json:"toProjectId"`
	Type          domain.LinkType `json:"type"`
	Confidence    float64         `json:"confidence"`
	Reason        string          `json:"reason"`
}

const maxTaskSuggestions = 10

var baseSuggestions = []TaskSuggestion{
	{"Define the technical architecture", "Choose the technologies, frameworks and project structure", domain.PriorityHigh, 4, "planning"},
	{"Write the requirements document", "Document the functional and technical specifications", domain.PriorityHigh, 6, "planning"},
	{"Set up unit tests", "Cover the main functions and components", domain.PriorityMedium, 10, "testing"},
	{"Run integration tests", "Exercise the flows between modules", domain.PriorityMedium, 8, "testing"},
	{"Write the technical documentation", "README, architecture notes, usage guides", domain.PriorityMedium, 6, "documentation"},
	{"Prepare the deployment", "Container images, CI/CD, hosting", domain.PriorityMedium, 8, "deployment"},
}

type keywordRule struct {
	keywords    []string
	tags        []string
	suggestions []TaskSuggestion
}

var keywordRules = []keywordRule{
	{
		keywords: []string{"design", "ui", "interface"},
		tags:     []string{"design"},
		suggestions: []TaskSuggestion{
			{"Create the UI/UX mockups", "Design the user interfaces and journeys", domain.PriorityHigh, 8, "design"},
			{"Define the visual identity", "Colors, typography, visual components", domain.PriorityMedium, 4, "design"},
		},
	},
	{
		keywords: []string{"web", "app"},
		tags:     []string{"web", "mobile"},
		suggestions: []TaskSuggestion{
			{"Set up the development environment", "Tooling, CI/CD, repository configuration", domain.PriorityHigh, 3, "development"},
			{"Build the core features", "Implement the main functionality", domain.PriorityHigh, 20, "development"},
		},
	},
	{
		keywords: []string{"database", "data"},
		suggestions: []TaskSuggestion{
			{"Design the database schema", "Model the entities and relations", domain.PriorityHigh, 6, "development"},
		},
	},
	{
		keywords: []string{"api", "backend", "service"},
		suggestions: []TaskSuggestion{
			{"Build the API endpoints", "Create the REST routes", domain.PriorityHigh, 12, "development"},
			{"Implement authentication", "Tokens, password hashing, permissions", domain.PriorityHigh, 8, "development"},
		},
	},
}

var priorityRank = map[domain.TaskPriority]int{
	domain.PriorityHigh:   3,
	domain.PriorityMedium: 2,
	domain.PriorityLow:    1,
}

// TaskSuggestions proposes starter tasks for the project, highest priority
// first, capped at maxTaskSuggestions.
func TaskSuggestions(p domain.Project) []TaskSuggestion {
	desc := strings.ToLower(p.Description)
	tags := lowerAll(p.Tags)

	suggestions := append([]TaskSuggestion(nil), baseSuggestions...)
	for _, rule := range keywordRules {
		if matchesAny(desc, rule.keywords) || containsAny(tags, rule.tags) {
			suggestions = append(suggestions, rule.suggestions...)
		}
	}

	for i, objective := range p.Objectives {
		lower := strings.ToLower(objective)
		if strings.Contains(lower, "mobile") {
			suggestions = append(suggestions, TaskSuggestion{
				Title:          fmt.Sprintf("Objective %d: mobile support", i+1),
				Description:    "Adapt the application for mobile: responsive design, PWA or native shell",
				Priority:       domain.PriorityHigh,
				EstimatedHours: 16,
				Category:       "development",
			})
		}
		if strings.Contains(lower, "performance") {
			suggestions = append(suggestions, TaskSuggestion{
				Title:          fmt.Sprintf("Objective %d: performance tuning", i+1),
				Description:    "Profile load times, add lazy loading and caching",
				Priority:       domain.PriorityMedium,
				EstimatedHours: 12,
				Category:       "development",
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return priorityRank[suggestions[i].Priority] > priorityRank[suggestions[j].Priority]
	})
	if len(suggestions) > maxTaskSuggestions {
		suggestions = suggestions[:maxTaskSuggestions]
	}
	return suggestions
}

// Advice returns checklist hints for gaps in the project definition.
func Advice(p domain.Project) []string {
	desc := strings.ToLower(p.Description)
	tags := lowerAll(p.Tags)

	advice := []string{}
	if !strings.Contains(desc, "test") && !contains(tags, "testing") {
		advice = append(advice, "Add a testing phase to guard quality")
	}
	if !strings.Contains(desc, "document") && !contains(tags, "documentation") {
		advice = append(advice, "Document the project for maintainability")
	}
	if !strings.Contains(desc, "deploy") && !contains(tags, "deployment") {
		advice = append(advice, "Plan the deployment strategy early")
	}
	if len(p.Objectives) < 3 {
		advice = append(advice, "Add more objectives to structure the project")
	}
	if p.Deadline == nil {
		advice = append(advice, "Set a deadline to plan the work")
	}
	return advice
}

const maxLinkSuggestions = 10

// LinkSuggestions proposes relationships between project pairs from shared
// tags and description keywords, most confident first.
func LinkSuggestions(projects []domain.Project) []LinkSuggestion {
	suggestions := []LinkSuggestion{}
	for i := 0; i < len(projects); i++ {
		for j := i + 1; j < len(projects); j++ {
			a, b := projects[i], projects[j]

			common := sharedTags(a.Tags, b.Tags)
			if len(common) > 0 {
				suggestions = append(suggestions, LinkSuggestion{
					FromProjectID: a.ID,
					ToProjectID:   b.ID,
					Type:          domain.LinkSimilarTo,
					Confidence:    0.7 + float64(len(common))*0.1,
					Reason:        "shared tags: " + strings.Join(common, ", "),
				})
			}

			descA := strings.ToLower(a.Description)
			descB := strings.ToLower(b.Description)
			if strings.Contains(descA, "api") && strings.Contains(descB, "frontend") {
				suggestions = append(suggestions, LinkSuggestion{
					FromProjectID: b.ID,
					ToProjectID:   a.ID,
					Type:          domain.LinkDependsOn,
					Confidence:    0.8,
					Reason:        "the frontend depends on the API",
				})
			}
			if strings.Contains(descA, "database") && (strings.Contains(descB, "application") || strings.Contains(descB, "service")) {
				suggestions = append(suggestions, LinkSuggestion{
					FromProjectID: b.ID,
					ToProjectID:   a.ID,
					Type:          domain.LinkDependsOn,
					Confidence:    0.75,
					Reason:        "the application uses the database",
				})
			}
			if a.CreatedBy != "" && a.CreatedBy == b.CreatedBy {
				suggestions = append(suggestions, LinkSuggestion{
					FromProjectID: a.ID,
					ToProjectID:   b.ID,
					Type:          domain.LinkSharesResources,
					Confidence:    0.6,
					Reason:        "same owner, resources may be shared",
				})
			}
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	if len(suggestions) > maxLinkSuggestions {
		suggestions = suggestions[:maxLinkSuggestions]
	}
	return suggestions
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func containsAny(values, targets []string) bool {
	for _, t := range targets {
		if contains(values, t) {
			return true
		}
	}
	return false
}

func sharedTags(a, b []string) []string {
	lowerB := lowerAll(b)
	shared := []string{}
	for _, tag := range lowerAll(a) {
		if contains(lowerB, tag) {
			shared = append(shared, tag)
		}
	}
	return shared
}
