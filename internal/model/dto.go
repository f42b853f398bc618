package model

// JudgmentResultDTO is one judgment in a search response.
type JudgmentResultDTO struct {
	Rank        int     `json:"rank"`
	SummaryID   int64   `json:"summaryId"`
	ParsedID    int64   `json:"parsedId"`
	Category    string  `json:"category"`
	Score       float64 `json:"score"`
	ScoreText   string  `json:"scoreText"`
	Summary     string  `json:"summary"`
	Sachverhalt string  `json:"sachverhalt"`
	Entscheid   string  `json:"entscheid"`
	Grundlagen  string  `json:"grundlagen"`
	Forderung   string  `json:"forderung"`
	FileName    string  `json:"fileName"`
	FilePath    string  `json:"filePath"`
}

// ArticleResultDTO is one statute article in a search response.
type ArticleResultDTO struct {
	Rank           int     `json:"rank"`
	VectorID       int64   `json:"vectorId"`
	Score          float64 `json:"score"`
	ScoreText      string  `json:"scoreText"`
	SRN            string  `json:"srn"`
	ShortName      string  `json:"shortName"`
	BookName       string  `json:"bookName,omitempty"`
	PartName       string  `json:"partName,omitempty"`
	TitleName      string  `json:"titleName,omitempty"`
	SubTitleName   string  `json:"subTitleName,omitempty"`
	ChapterName    string  `json:"chapterName,omitempty"`
	SubChapterName string  `json:"subChapterName,omitempty"`
	SectionName    string  `json:"sectionName,omitempty"`
	SubSectionName string  `json:"subSectionName,omitempty"`
	ArtID          string  `json:"artId"`
	TypeCD         string  `json:"typeCd"`
	FullArticle    string  `json:"fullArticle"`
	SourceTable    string  `json:"sourceTable"`
}

// SearchResponseDTO is the body of a search response.
type SearchResponseDTO struct {
	Query     string              `json:"query"`
	TopN      int                 `json:"topN"`
	Documents []JudgmentResultDTO `json:"documents"`
	Articles  []ArticleResultDTO  `json:"articles"`
	Warnings  []string            `json:"warnings"`
}

// EnqueueResponseDTO reports the enrichment tasks published by an admin request.
type EnqueueResponseDTO struct {
	Tasks      int       `json:"tasks"`
	TaskIDs    []string  `json:"taskIds"`
	EnqueuedAt LocalTime `json:"enqueuedAt"`
}

// DownloadInfoDTO is a time-limited link to a judgment source file.
type DownloadInfoDTO struct {
	SummaryID   int64  `json:"summaryId"`
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
}
