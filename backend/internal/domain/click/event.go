/*
 * @Author: NEFU AB-IN
 * @Date: 2025-11-02 10:40:03
 * @FilePath: \paper-portal\backend\internal\domain\click\event.go
 * @LastEditTime: 2025-11-02 10:40:08
 */
package click

import "time"

// Event 记录一次“用户查看论文”的点击，写入后不再修改。
// idx_paper_clicks_dedup 覆盖去重查询 (user, paper, college, click_time >= since)。
type Event struct {
	ID        uint64    `gorm:"column:click_id;primaryKey;autoIncrement" json:"click_id"`
	UserID    uint      `gorm:"not null;index:idx_paper_clicks_dedup,priority:1" json:"user_id"`
	PaperID   uint      `gorm:"not null;index:idx_paper_clicks_dedup,priority:2;index:idx_paper_clicks_paper" json:"paper_id"`
	CollegeID uint      `gorm:"not null;index:idx_paper_clicks_dedup,priority:3;index:idx_paper_clicks_college" json:"college_id"`
	ClickTime time.Time `gorm:"not null;index:idx_paper_clicks_dedup,priority:4;index:idx_paper_clicks_time" json:"click_time"`
}

// TableName 固定表名为 paper_clicks。
func (Event) TableName() string {
	return "paper_clicks"
}
