package model

import "time"

// DatasetStatusReady marks a dataset whose upload and profiling completed.
const DatasetStatusReady = "READY"

// ColumnMetadata describes one column of an uploaded tabular file.
type ColumnMetadata struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// DataSource describes one uploaded tabular file. Created by the upload
// pipeline; read-only inside the agent.
type DataSource struct {
	ID             string           `json:"id"`
	ProjectID      string           `json:"projectId"`
	Type           string           `json:"type"`
	Filename       string           `json:"filename"`
	BlobPath       string           `json:"blobPath"`
	BlobURL        string           `json:"blobUrl"`
	Size           int64            `json:"size"`
	Rows           int              `json:"rows"`
	Columns        int              `json:"columns"`
	SampleData     []map[string]any `json:"sampleData"`
	ColumnMetadata []ColumnMetadata `json:"columnMetadata"`
	Status         string           `json:"status"`
	CreatedAt      time.Time        `json:"createdAt"`
	LastUpdatedAt  time.Time        `json:"lastUpdatedAt"`
}

// PromptView trims a DataSource down to what prompts need: identity, shape,
// column metadata and a single sample row.
func (d DataSource) PromptView() map[string]any {
	sample := d.SampleData
	if len(sample) > 1 {
		sample = sample[:1]
	}
	return map[string]any{
		"id":             d.ID,
		"filename":       d.Filename,
		"rows":           d.Rows,
		"columns":        d.Columns,
		"columnMetadata": d.ColumnMetadata,
		"sampleData":     sample,
	}
}

// PromptViews maps every dataset through PromptView.
func PromptViews(datasets []DataSource) []map[string]any {
	views := make([]map[string]any, 0, len(datasets))
	for _, d := range datasets {
		views = append(views, d.PromptView())
	}
	return views
}
