package model

import "time"

// FederalArticle maps one paragraph row of the federal statute table "articles".
type FederalArticle struct {
	ID             int64     `gorm:"primaryKey;column:id"`
	InsertTsd      time.Time `gorm:"autoCreateTime;column:insert_tsd"`
	SRN            string    `gorm:"type:varchar(255);index:idx_articles_srn_art;column:srn"`
	ShortName      string    `gorm:"type:varchar(35);column:shortName"`
	BookName       string    `gorm:"type:text;column:book_name"`
	PartName       string    `gorm:"type:text;column:part_name"`
	TitleName      string    `gorm:"type:text;column:title_name"`
	SubTitleName   string    `gorm:"type:text;column:sub_title_name"`
	ChapterName    string    `gorm:"type:text;column:chapter_name"`
	SubChapterName string    `gorm:"type:text;column:sub_chapter_name"`
	SectionName    string    `gorm:"type:text;column:section_name"`
	SubSectionName string    `gorm:"type:text;column:sub_section_name"`
	ArticleID      string    `gorm:"type:varchar(255);index:idx_articles_srn_art;column:article_id"`
	ArticleName    string    `gorm:"type:text;column:article_name"`
	Reference      string    `gorm:"type:text;column:reference"`
	ZifferName     string    `gorm:"type:text;column:ziffer_name"`
	Absatz         string    `gorm:"type:varchar(255);column:absatz"`
	TextWFootnotes *string   `gorm:"type:text;column:text_w_footnotes"`
}

func (FederalArticle) TableName() string {
	return "articles"
}

// CantonalArticle maps one paragraph row of the Bernese statute table "articles_bern".
type CantonalArticle struct {
	ID               int64     `gorm:"primaryKey;column:id"`
	InsertTsd        time.Time `gorm:"autoCreateTime;column:insert_tsd"`
	SystematicNumber string    `gorm:"type:varchar(255);index:idx_articles_bern_srn_art;column:systematic_number"`
	Abbreviation     string    `gorm:"type:varchar(255);column:abbreviation"`
	BookName         string    `gorm:"type:text;column:book_name"`
	PartName         string    `gorm:"type:text;column:part_name"`
	TitleName        string    `gorm:"type:text;column:title_name"`
	SubTitleName     string    `gorm:"type:text;column:sub_title_name"`
	ChapterName      string    `gorm:"type:text;column:chapter_name"`
	SubChapterName   string    `gorm:"type:text;column:sub_chapter_name"`
	SectionName      string    `gorm:"type:text;column:section_name"`
	SubSectionName   string    `gorm:"type:text;column:sub_section_name"`
	ArticleNumber    string    `gorm:"type:varchar(255);index:idx_articles_bern_srn_art;column:article_number"`
	ArticleTitle     string    `gorm:"type:text;column:article_title"`
	ParagraphNumber  string    `gorm:"type:varchar(255);column:paragraph_number"`
	ParagraphText    *string   `gorm:"type:text;column:paragraph_text"`
}

func (CantonalArticle) TableName() string {
	return "articles_bern"
}

// ArticleVector maps articles_vector: one embedding per article paragraph ("abs") or
// whole article ("art"), pointing back at its source table.
type ArticleVector struct {
	ID          int64  `gorm:"primaryKey;autoIncrement;column:id"`
	SRN         string `gorm:"type:varchar(255);column:srn"`
	ArtID       string `gorm:"type:varchar(255);column:art_id"`
	TypeCD      string `gorm:"type:varchar(50);column:type_cd"`
	TypeID      string `gorm:"type:varchar(255);column:type_id"`
	Vector      []byte `gorm:"type:blob;column:vector"`
	SourceTable string `gorm:"type:varchar(255);column:source_table"`
}

func (ArticleVector) TableName() string {
	return "articles_vector"
}
