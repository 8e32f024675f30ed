package progression

import "time"

const (
	LabelStageQueued     = "queued"
	LabelStageProcessing = "processing"
	LabelStageCompleted  = "completed"
	LabelStageFailed     = "failed"
)

// ContentLabel is written by the external labeling pipeline; the core only reads it.
type ContentLabel struct {
	ContentKey   string    `gorm:"column:content_key;primaryKey" json:"content_key"`
	Stage        string    `gorm:"column:stage;not null;index" json:"stage"`
	LanguageCode string    `gorm:"column:language_code;not null;default:''" json:"language_code,omitempty"`
	MediaType    string    `gorm:"column:media_type;not null;default:''" json:"media_type,omitempty"`
	Title        string    `gorm:"column:title;not null;default:''" json:"title,omitempty"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (ContentLabel) TableName() string { return "content_label" }

// Ready reports whether the label can drive finalization.
func (l *ContentLabel) Ready() bool {
	return l != nil && l.Stage == LabelStageCompleted && l.LanguageCode != ""
}

// Terminal reports whether the stage will not change without operator action.
func (l *ContentLabel) Terminal() bool {
	return l != nil && (l.Stage == LabelStageCompleted || l.Stage == LabelStageFailed)
}
