package model

// EsVectorDocument is one vector stored in the Elasticsearch vector index. Judgment
// vectors fill SummaryID/ParsedID, article vectors fill the article fields. VectorID is
// the summary id or the articles_vector id and orders documents when no score applies.
// Vector is nil for a zero vector, which a cosine dense_vector field rejects.
type EsVectorDocument struct {
	DocID       string    `json:"doc_id"`
	Category    string    `json:"category"`
	VectorID    int64     `json:"vector_id"`
	SummaryID   int64     `json:"summary_id,omitempty"`
	ParsedID    int64     `json:"parsed_id,omitempty"`
	SRN         string    `json:"srn,omitempty"`
	ArtID       string    `json:"art_id,omitempty"`
	TypeCD      string    `json:"type_cd,omitempty"`
	TypeID      string    `json:"type_id,omitempty"`
	SourceTable string    `json:"source_table,omitempty"`
	Vector      []float32 `json:"vector,omitempty"`
	Model       string    `json:"model,omitempty"`
}
