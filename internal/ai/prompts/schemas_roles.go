package prompts

// Role schema names, versioned alongside the descriptors below.
const (
	SchemaNameProjectIdeas = "project_ideas_v1"
	SchemaNameAssessment   = "project_assessment_v1"
	SchemaNameTutor        = "tutor_response_v1"
)

// ProjectBriefSchema describes one generated project brief.
func ProjectBriefSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"title":                    StringSchema(),
		"subtitle":                 StringSchema(),
		"description_html":         StringSchema(),
		"difficulty_level":         EnumSchema("beginner", "intermediate", "advanced"),
		"estimated_duration_hours": IntSchema(),
		"learning_objectives":      StringArraySchema(),
		"expected_deliverables":    StringArraySchema(),
		"key_tasks": ArraySchema(ObjectSchema(map[string]any{
			"id":          StringSchema(),
			"title":       StringSchema(),
			"description": StringSchema(),
		}, []string{"id", "title", "description"})),
		"suggested_tools": StringArraySchema(),
		"assessment_rubric": ArraySchema(ObjectSchema(map[string]any{
			"criterion": StringSchema(),
			"weight":    IntSchema(),
		}, []string{"criterion", "weight"})),
		"personalization_rationale": StringSchema(),
	}, []string{
		"title",
		"description_html",
		"difficulty_level",
		"estimated_duration_hours",
		"learning_objectives",
		"expected_deliverables",
		"key_tasks",
		"suggested_tools",
		"assessment_rubric",
		"personalization_rationale",
	})
}

func ProjectIdeasSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"generated_projects": ArraySchema(ProjectBriefSchema()),
	}, []string{"generated_projects"})
}

func AssessmentSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"overall_competency_score": UnitIntervalSchema(),
		"feedback_summary_html":    StringSchema(),
		"detailed_feedback_points": ArraySchema(ObjectSchema(map[string]any{
			"aspect":      StringSchema(),
			"score":       UnitIntervalSchema(),
			"observation": StringSchema(),
			"is_strength": BoolSchema(),
		}, []string{"aspect", "score", "observation", "is_strength"})),
		"skills_demonstrated":                 StringArraySchema(),
		"critical_areas_for_improvement_html": StringArraySchema(),
		"positive_points_highlighted_html":    StringArraySchema(),
	}, []string{
		"overall_competency_score",
		"feedback_summary_html",
		"detailed_feedback_points",
		"skills_demonstrated",
		"critical_areas_for_improvement_html",
		"positive_points_highlighted_html",
	})
}

func TutorResponseSchema() map[string]any {
	return ObjectSchema(map[string]any{
		"main_answer_text":               StringSchema(),
		"suggested_follow_ups":           StringArraySchema(),
		"generated_analogies_for_answer": StringArraySchema(),
		"answer_confidence_score":        UnitIntervalSchema(),
	}, []string{
		"main_answer_text",
		"suggested_follow_ups",
		"generated_analogies_for_answer",
		"answer_confidence_score",
	})
}
