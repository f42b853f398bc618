package model

import "github.com/pgvector/pgvector-go"

// PgSummary is the Postgres shape of e_bern_summary, with pgvector columns in place of blobs.
type PgSummary struct {
	ID                int64            `gorm:"primaryKey;column:id"`
	ParsedID          int64            `gorm:"column:parsed_id"`
	Model             string           `gorm:"column:model"`
	SummaryText       string           `gorm:"column:summary_text"`
	Sachverhalt       string           `gorm:"column:sachverhalt"`
	Entscheid         string           `gorm:"column:entscheid"`
	Grundlagen        string           `gorm:"column:grundlagen"`
	SummaryVector     *pgvector.Vector `gorm:"type:vector(1536);column:summary_vector"`
	SachverhaltVector *pgvector.Vector `gorm:"type:vector(1536);column:sachverhalt_vector"`
	EntscheidVector   *pgvector.Vector `gorm:"type:vector(1536);column:entscheid_vector"`
	GrundlagenVector  *pgvector.Vector `gorm:"type:vector(1536);column:grundlagen_vector"`
}

func (PgSummary) TableName() string {
	return "e_bern_summary"
}

// PgArticleVector is the Postgres shape of articles_vector.
type PgArticleVector struct {
	ID          int64            `gorm:"primaryKey;column:id"`
	SRN         string           `gorm:"column:srn"`
	ArtID       string           `gorm:"column:art_id"`
	TypeCD      string           `gorm:"column:type_cd"`
	TypeID      string           `gorm:"column:type_id"`
	Vector      *pgvector.Vector `gorm:"type:vector(1536);column:vector"`
	SourceTable string           `gorm:"column:source_table"`
}

func (PgArticleVector) TableName() string {
	return "articles_vector"
}
