package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	ErrDuplicatePaper = errors.New("论文已存在")
	ErrRecordNotFound = gorm.ErrRecordNotFound
)

type PaperDAO interface {
	Insert(ctx context.Context, p *Paper) error
	FindById(ctx context.Context, id int64) (Paper, error)
	List(ctx context.Context, q ListQuery) ([]Paper, error)
	ListUpdatedSince(ctx context.Context, since int64) ([]Paper, error)
	CountByTitlePrefix(ctx context.Context, prefix string) (int64, error)
	UpdateById(ctx context.Context, id int64, fields map[string]any) error
	Stats(ctx context.Context) ([]GroupCount, []GroupCount, error)
}

type Paper struct {
	Id       int64  `gorm:"primaryKey;autoIncrement"`
	Title    string `gorm:"type:varchar(512);uniqueIndex:uniq_title_filename"`
	Filename string `gorm:"type:varchar(255);uniqueIndex:uniq_title_filename"`
	Theme    string `gorm:"type:varchar(64);index"`

	SuggestedTheme string `gorm:"type:varchar(64)"`
	Status         string `gorm:"type:varchar(32);index"`
	Summary        string `gorm:"type:text"`
	// 以换行分隔的关键概念
	KeyConcepts       string `gorm:"type:text"`
	ResearchGaps      string `gorm:"type:text"`
	Methodology       string `gorm:"type:text"`
	Notes             string `gorm:"type:text"`
	Pages             int
	ExtractionSuccess bool
	NotionPageID      string `gorm:"type:varchar(64)"`
	NotionURL         string `gorm:"type:varchar(512)"`
	PDFLink           string `gorm:"type:varchar(1024)"`
	Source            string `gorm:"type:varchar(32)"`

	Ctime int64
	// 更新时间
	Utime int64 `gorm:"index"`
}

// ListQuery filters List. Zero values mean "any".
type ListQuery struct {
	Theme  string
	Status string
	Limit  int
	Offset int
}

// GroupCount is one row of a GROUP BY aggregation.
type GroupCount struct {
	Key   string
	Count int64
}

type paperDAO struct {
	db *gorm.DB
}

func NewPaperDAO(db *gorm.DB) PaperDAO {
	return &paperDAO{
		db: db,
	}
}

// InitTables migrates every table this package owns.
func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&Paper{})
}

func (dao *paperDAO) Insert(ctx context.Context, p *Paper) error {
	now := time.Now().UnixMilli()
	p.Ctime = now
	p.Utime = now
	err := dao.db.WithContext(ctx).Create(p).Error
	if isDuplicate(err) {
		return ErrDuplicatePaper
	}
	return err
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		const duplicateErr uint16 = 1062
		return me.Number == duplicateErr
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (dao *paperDAO) FindById(ctx context.Context, id int64) (Paper, error) {
	var p Paper
	err := dao.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	return p, err
}

func (dao *paperDAO) List(ctx context.Context, q ListQuery) ([]Paper, error) {
	tx := dao.db.WithContext(ctx).Model(&Paper{})
	if q.Theme != "" {
		tx = tx.Where("theme = ? OR suggested_theme = ?", q.Theme, q.Theme)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var res []Paper
	err := tx.Order("utime DESC, id DESC").Limit(limit).Offset(q.Offset).Find(&res).Error
	return res, err
}

func (dao *paperDAO) ListUpdatedSince(ctx context.Context, since int64) ([]Paper, error) {
	var res []Paper
	err := dao.db.WithContext(ctx).
		Where("utime > ?", since).
		Order("utime DESC, id DESC").
		Find(&res).Error
	return res, err
}

func (dao *paperDAO) CountByTitlePrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := dao.db.WithContext(ctx).Model(&Paper{}).
		Where("LOWER(title) LIKE ? ESCAPE '"+likeEscape+"'", escapeLike(prefix)+"%").
		Count(&n).Error
	return n, err
}

func (dao *paperDAO) UpdateById(ctx context.Context, id int64, fields map[string]any) error {
	fields["utime"] = time.Now().UnixMilli()
	res := dao.db.WithContext(ctx).Model(&Paper{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Stats returns paper counts grouped by effective theme and by status.
func (dao *paperDAO) Stats(ctx context.Context) ([]GroupCount, []GroupCount, error) {
	themeExpr := "CASE WHEN suggested_theme <> '' THEN suggested_theme ELSE theme END"
	byTheme, err := dao.groupCount(ctx, sq.Select(themeExpr+" AS k", "COUNT(*) AS n").
		From("papers").GroupBy("k"))
	if err != nil {
		return nil, nil, err
	}
	byStatus, err := dao.groupCount(ctx, sq.Select("status AS k", "COUNT(*) AS n").
		From("papers").GroupBy("status"))
	if err != nil {
		return nil, nil, err
	}
	return byTheme, byStatus, nil
}

func (dao *paperDAO) groupCount(ctx context.Context, b sq.SelectBuilder) ([]GroupCount, error) {
	sqlStr, args, err := b.OrderBy("n DESC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := dao.db.WithContext(ctx).Raw(sqlStr, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GroupCount
	for rows.Next() {
		var gc GroupCount
		if err := rows.Scan(&gc.Key, &gc.Count); err != nil {
			return nil, err
		}
		out = append(out, gc)
	}
	return out, rows.Err()
}

// likeEscape is a one-character ESCAPE valid in both sqlite and mysql.
const likeEscape = "!"

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
