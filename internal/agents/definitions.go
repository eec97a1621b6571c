package agents

import "github.com/vishva-ai/vishva/pkg/models"

// DefaultModel is used by every built-in agent unless overridden.
const DefaultModel = "claude-sonnet-4-5"

func dictList() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key":   map[string]any{"type": "string"},
				"value": map[string]any{"type": "string"},
			},
			"required": []string{"key", "value"},
		},
	}
}

func builtinAgents() []*models.Agent {
	return []*models.Agent{
		{
			Name:  "Location Agent",
			Model: DefaultModel,
			Instructions: `You are a location-based search specialist. Your role is to:
1. Process location-related queries accurately
2. Find and validate physical locations
3. Provide detailed location information including coordinates
4. Consider context and user preferences when searching
5. Handle both specific addresses and general area searches

Always provide:
- Full address information
- Coordinates when available
- Relevant place IDs or references
- Additional context about the location`,
			Tools:             []string{"web_search", "get_distance_matrix"},
			ParallelToolCalls: true,
			OutputSchema: &models.OutputSchema{
				Name: "location_response",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"locations": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"address":         map[string]any{"type": "string"},
									"coordinates":     dictList(),
									"place_id":        map[string]any{"type": "string"},
									"additional_info": dictList(),
								},
								"required": []string{"address", "place_id"},
							},
						},
						"search_radius": map[string]any{"type": "number"},
						"search_query":  map[string]any{"type": "string"},
					},
					"required": []string{"locations", "search_query"},
				},
			},
		},
		{
			Name:  "Search Agent",
			Model: DefaultModel,
			Instructions: `You are a web search and comparison specialist. Your role is to:
1. Execute detailed web searches based on user queries
2. Filter and rank results by relevance
3. Compare options across multiple sources
4. Validate information from multiple sources
5. Provide structured, actionable search results

For each search result, include:
- Title and URL
- Relevant snippet or summary
- Source credibility assessment
- Timestamp of information
- Relevance score`,
			Tools:             []string{"web_search"},
			ParallelToolCalls: true,
			OutputSchema: &models.OutputSchema{
				Name: "search_response",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"results": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"title":           map[string]any{"type": "string"},
									"url":             map[string]any{"type": "string"},
									"snippet":         map[string]any{"type": "string"},
									"source":          map[string]any{"type": "string"},
									"timestamp":       map[string]any{"type": "string"},
									"relevance_score": map[string]any{"type": "number"},
								},
								"required": []string{"title", "url", "snippet", "source"},
							},
						},
						"query":            map[string]any{"type": "string"},
						"total_results":    map[string]any{"type": "integer"},
						"filtered_results": map[string]any{"type": "integer"},
					},
					"required": []string{"results", "query", "total_results"},
				},
			},
		},
		{
			Name:  "Scheduling Agent",
			Model: DefaultModel,
			Instructions: `You are a scheduling and time management specialist. Your role is to:
1. Process time-based requests and scheduling needs
2. Check availability and conflicts
3. Suggest optimal timing options
4. Consider duration and buffer times
5. Account for location and travel time when relevant

For each scheduling task:
- Validate date and time formats
- Check for scheduling conflicts
- Provide alternative options when needed
- Include relevant location details
- Note any specific requirements or constraints`,
			ParallelToolCalls: true,
			OutputSchema: &models.OutputSchema{
				Name: "scheduling_response",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"schedule":     scheduleSchema(),
						"alternatives": map[string]any{"type": "array", "items": scheduleSchema()},
						"conflicts": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required": []string{"schedule"},
				},
			},
		},
		{
			Name:  "Navigation Agent",
			Model: DefaultModel,
			Instructions: `You are a navigation and routing specialist. Your role is to:
1. Plan optimal routes between locations
2. Consider multiple transportation modes
3. Account for traffic and timing
4. Provide turn-by-turn directions
5. Calculate accurate travel times and distances

For each navigation request:
- Break down into clear steps
- Include distance and duration for each step
- Specify transport modes
- Note any potential issues or alternatives
- Consider real-time factors when possible`,
			Tools:             []string{"get_distance_matrix", "get_directions"},
			ParallelToolCalls: true,
			OutputSchema: &models.OutputSchema{
				Name: "navigation_response",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"steps": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"instruction":     map[string]any{"type": "string"},
									"distance":        map[string]any{"type": "number"},
									"duration":        map[string]any{"type": "number"},
									"mode":            map[string]any{"type": "string"},
									"additional_info": dictList(),
								},
								"required": []string{"instruction", "mode"},
							},
						},
						"total_distance": map[string]any{"type": "number"},
						"total_duration": map[string]any{"type": "number"},
						"start_location": map[string]any{"type": "string"},
						"end_location":   map[string]any{"type": "string"},
						"transport_mode": map[string]any{"type": "string"},
					},
					"required": []string{"steps", "start_location", "end_location", "transport_mode"},
				},
			},
		},
		{
			Name:  "Concierge Agent",
			Model: DefaultModel,
			Instructions: `You are a recommendations and personalization specialist. Your role is to:
1. Understand user preferences and requirements
2. Provide tailored recommendations
3. Consider multiple factors (price, rating, availability)
4. Offer alternatives and options
5. Include relevant details for decision-making

For each recommendation:
- Include comprehensive details
- Provide ratings and reviews when available
- Note availability and constraints
- Consider user context and preferences
- Offer multiple options when appropriate`,
			Tools:             []string{"web_search"},
			ParallelToolCalls: true,
			OutputSchema: &models.OutputSchema{
				Name: "concierge_response",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"recommendations": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"title":           map[string]any{"type": "string"},
									"category":        map[string]any{"type": "string"},
									"rating":          map[string]any{"type": "number"},
									"price_range":     map[string]any{"type": "string"},
									"description":     map[string]any{"type": "string"},
									"location":        map[string]any{"type": "string"},
									"availability":    map[string]any{"type": "string"},
									"additional_info": dictList(),
								},
								"required": []string{"title", "category", "description"},
							},
						},
						"search_criteria": dictList(),
						"total_options":   map[string]any{"type": "integer"},
					},
					"required": []string{"recommendations", "total_options"},
				},
			},
		},
	}
}

func scheduleSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_time": map[string]any{"type": "string"},
			"duration":   map[string]any{"type": "integer"},
			"location":   map[string]any{"type": "string"},
			"participants": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"notes": map[string]any{"type": "string"},
		},
		"required": []string{"event_time", "location"},
	}
}
