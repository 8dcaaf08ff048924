package models

// Topic is a syllabus entry of the exam catalog
type Topic struct {
	ID    int64  `json:"id" yaml:"id" db:"id"`
	Title string `json:"title" yaml:"title" db:"title"`
}
