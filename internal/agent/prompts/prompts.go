package prompts

import (
	"context"
	"embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Template names, one system/user pair per pipeline step. Content is opaque
// to the rest of the agent.
const (
	ClassifyQuerySystem = "classify_query_system"
	ClassifyQueryUser   = "classify_query_user"

	AnalyzeQuestionSystem = "analyze_question_system"
	AnalyzeQuestionUser   = "analyze_question_user"

	VisualConceptSystem = "visual_concept_system"
	VisualConceptUser   = "visual_concept_user"

	DemoVisualDataSystem = "demo_visual_data_system"
	DemoVisualDataUser   = "demo_visual_data_user"

	GenerateCodeSystem = "generate_code_system"
	GenerateCodeUser   = "generate_code_user"

	GenerateVisualCodeSystem = "generate_visual_code_system"
	GenerateVisualCodeUser   = "generate_visual_code_user"

	FormatResponseSystem = "format_response_system"
	FormatResponseUser   = "format_response_user"

	NonDataQuerySystem = "non_data_query_system"
	NonDataQueryUser   = "non_data_query_user"
)

//go:embed template/*.txt
var templateFS embed.FS

// Render renders the named template against vars via the Eino prompt
// component, so prompt callbacks fire. Go template syntax keeps the JSON
// braces inside templates inert.
func Render(ctx context.Context, name string, vars map[string]any) (string, error) {
	raw, err := templateFS.ReadFile("template/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("unknown prompt template %q: %w", name, err)
	}

	tpl := prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(string(raw)))
	if vars == nil {
		vars = map[string]any{}
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("render prompt %q: empty result", name)
	}
	return msgs[0].Content, nil
}
