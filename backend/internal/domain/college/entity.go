package college

// College 是学院主数据，由外部维护，本系统只读。
type College struct {
	ID   uint   `gorm:"primaryKey" json:"college_id"`
	Name string `gorm:"column:college_name;size:128;not null" json:"college_name"`
	Code string `gorm:"size:32;uniqueIndex" json:"code"`
}
