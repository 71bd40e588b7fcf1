package model

// VisualType enumerates the chart types the frontend can render.
type VisualType string

const (
	VisualLine        VisualType = "line"
	VisualArea        VisualType = "area"
	VisualBar         VisualType = "bar"
	VisualPie         VisualType = "pie"
	VisualDonut       VisualType = "donut"
	VisualRadialBar   VisualType = "radialBar"
	VisualScatter     VisualType = "scatter"
	VisualBubble      VisualType = "bubble"
	VisualHeatmap     VisualType = "heatmap"
	VisualCandlestick VisualType = "candlestick"
	VisualBoxPlot     VisualType = "boxPlot"
	VisualRadar       VisualType = "radar"
	VisualPolarArea   VisualType = "polarArea"
	VisualRangeBar    VisualType = "rangeBar"
	VisualRangeArea   VisualType = "rangeArea"
	VisualTreemap     VisualType = "treemap"
)

// VisualTypeNames returns every supported chart type, used to enumerate the
// options inside the visual-concept prompt.
func VisualTypeNames() []string {
	return []string{
		string(VisualLine), string(VisualArea), string(VisualBar),
		string(VisualPie), string(VisualDonut), string(VisualRadialBar),
		string(VisualScatter), string(VisualBubble), string(VisualHeatmap),
		string(VisualCandlestick), string(VisualBoxPlot), string(VisualRadar),
		string(VisualPolarArea), string(VisualRangeBar), string(VisualRangeArea),
		string(VisualTreemap),
	}
}

// VisualData is the series/options payload a chart is rendered from.
type VisualData struct {
	Series  []any          `json:"series"`
	Options map[string]any `json:"options"`
}

// VisualConcept is the structured output of the visual-concept node.
type VisualConcept struct {
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Type               VisualType `json:"type"`
	RequiredDatasetIDs []string   `json:"required_dataset_ids"`
}

// VisualConceptsResult wraps the concept list the model returns; only the
// first concept is used.
type VisualConceptsResult struct {
	VisualConcepts []VisualConcept `json:"visual_concepts"`
}

// VisualSampleResult wraps the demo series/options sample the model returns.
type VisualSampleResult struct {
	VisualSampleData VisualData `json:"visual_sample_data"`
}
