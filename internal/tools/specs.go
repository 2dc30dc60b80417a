package tools

import "github.com/cloudwego/eino/schema"

// InquiryToolInfos returns the tool specs bound during the needs-inquiry
// phase. Only end_inquiry is available there.
func InquiryToolInfos() []*schema.ToolInfo {
	return []*schema.ToolInfo{endInquiryInfo()}
}

// TeachingToolInfos returns the tool specs bound during the teaching phase.
// end_inquiry is not among them; the phase transition is one-way.
func TeachingToolInfos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		generateExerciseInfo(),
		webSearchInfo(),
		fileSystemInfo(),
	}
}

func endInquiryInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: NameEndInquiry,
		Desc: "Signal that enough information about the student's needs has been collected. Call this once the learning goal, current level, time budget and preferences are known.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"summary": {
				Type:     schema.String,
				Desc:     "A concise summary of the student's learning needs",
				Required: true,
			},
		}),
	}
}

func generateExerciseInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: NameGenerateExercise,
		Desc: "Create a practice exercise and save it to the workspace. Returns the exercise id.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"type": {
				Type: schema.String,
				Desc: "Exercise type",
				Enum: []string{"choice", "fill_blank", "short_answer", "match", "multi_fill"},
			},
			"question": {
				Type:     schema.String,
				Desc:     "The exercise question text",
				Required: true,
			},
			"options": {
				Type:     schema.Array,
				ElemInfo: &schema.ParameterInfo{Type: schema.String},
				Desc:     "Answer options (choice exercises, at least 2)",
			},
			"blanks": {
				Type:     schema.Array,
				ElemInfo: &schema.ParameterInfo{Type: schema.String},
				Desc:     "Blank positions (fill_blank exercises)",
			},
			"correct_answers": {
				Type:     schema.Array,
				ElemInfo: &schema.ParameterInfo{Type: schema.String},
				Desc:     "The correct answers, in order",
			},
			"explanation": {
				Type: schema.String,
				Desc: "Explanation shown after grading",
			},
			"difficulty": {
				Type: schema.String,
				Desc: "Exercise difficulty",
				Enum: []string{"easy", "medium", "hard"},
			},
		}),
	}
}

func webSearchInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: NameWebSearch,
		Desc: "Search the web for current information. Returns titles, URLs, and snippets.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "The search query",
				Required: true,
			},
			"max_results": {
				Type: schema.Integer,
				Desc: "Maximum number of results (default 5)",
			},
		}),
	}
}

func fileSystemInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: NameFileSystem,
		Desc: "Read, write, edit or delete files in the student's workspace, or create directories. Paths are relative to the workspace root.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"action": {
				Type:     schema.String,
				Desc:     "The operation to perform",
				Enum:     []string{"read", "write", "edit", "delete", "mkdir"},
				Required: true,
			},
			"path": {
				Type:     schema.String,
				Desc:     "File or directory path inside the workspace",
				Required: true,
			},
			"content": {
				Type: schema.String,
				Desc: "Content to write (write action)",
			},
			"edit_instruction": {
				Type: schema.String,
				Desc: "Replacement instruction, format: old text->new text (edit action)",
			},
		}),
	}
}
