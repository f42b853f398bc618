// Package model defines the Go structs mapped onto database tables and API payloads.
package model

import "time"

// Summary maps the e_bern_summary table: the generated fields of one judgment plus one
// packed float32 vector per field.
type Summary struct {
	ID                    int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Tsd                   time.Time `gorm:"autoCreateTime;column:tsd"`
	ParsedID              int64     `gorm:"index;column:parsed_id"`
	TokenCountOriginal    int       `gorm:"column:token_count_original"`
	Model                 string    `gorm:"type:text;column:model"`
	Prompt                string    `gorm:"type:text;column:prompt"`
	SummaryText           string    `gorm:"type:longtext;column:summary_text"`
	TokenCountSummary     int       `gorm:"column:token_count_summary"`
	Sachverhalt           string    `gorm:"type:longtext;column:sachverhalt"`
	TokenCountSachverhalt int       `gorm:"column:token_count_sachverhalt"`
	Entscheid             string    `gorm:"type:longtext;column:entscheid"`
	TokenCountEntscheid   int       `gorm:"column:token_count_entscheid"`
	Grundlagen            string    `gorm:"type:longtext;column:grundlagen"`
	TokenCountGrundlagen  int       `gorm:"column:token_count_grundlagen"`
	SummaryVector         []byte    `gorm:"type:blob;column:summary_vector"`
	SachverhaltVector     []byte    `gorm:"type:blob;column:sachverhalt_vector"`
	EntscheidVector       []byte    `gorm:"type:blob;column:entscheid_vector"`
	GrundlagenVector      []byte    `gorm:"type:blob;column:grundlagen_vector"`
}

func (Summary) TableName() string {
	return "e_bern_summary"
}

// ParsedDocument maps e_bern_parsed: the extracted and cleaned text of a judgment PDF.
type ParsedDocument struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Tsd         time.Time `gorm:"autoCreateTime;column:tsd"`
	FileName    string    `gorm:"type:varchar(255);uniqueIndex;column:file_name"`
	FilePath    string    `gorm:"type:text;column:file_path"`
	PDFText     string    `gorm:"type:longtext;column:pdf_text"`
	Language    string    `gorm:"type:varchar(10);column:language"`
	TextCleaned *string   `gorm:"type:longtext;column:text_cleaned"`
	Tokens      int       `gorm:"column:tokens"`
}

func (ParsedDocument) TableName() string {
	return "e_bern_parsed"
}

// RawDocument maps e_bern_raw: the intake record of a scraped judgment.
type RawDocument struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Tsd        time.Time `gorm:"autoCreateTime;column:tsd"`
	FileName   string    `gorm:"type:varchar(255);uniqueIndex;column:file_name"`
	Datum      string    `gorm:"type:text;column:datum"`
	Forderung  string    `gorm:"type:text;column:forderung"`
	Signatur   string    `gorm:"type:text;column:signatur"`
	Source     string    `gorm:"type:text;column:source"`
	FilePath   string    `gorm:"type:text;column:file_path"`
	PDFURL     string    `gorm:"type:text;column:pdf_url"`
	Checksum   string    `gorm:"type:text;column:checksum"`
	CaseNumber string    `gorm:"type:text;column:case_number"`
}

func (RawDocument) TableName() string {
	return "e_bern_raw"
}
