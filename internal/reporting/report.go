// Package reporting renders the system design document (系统设计说明书) from a
// read-only snapshot of the three stores. It never mutates anything.
package reporting

import (
	"io"
	"os"
	"text/template"
	"time"

	"github.com/pluvial233/WHU-teamwork/internal/models"
	"github.com/pluvial233/WHU-teamwork/internal/repositories"
)

type Generator struct {
	userRepo   repositories.UserRepository
	bookRepo   repositories.BookRepository
	recordRepo repositories.BorrowRecordRepository
}

func NewGenerator(userRepo repositories.UserRepository, bookRepo repositories.BookRepository, recordRepo repositories.BorrowRecordRepository) *Generator {
	return &Generator{
		userRepo:   userRepo,
		bookRepo:   bookRepo,
		recordRepo: recordRepo,
	}
}

type reportData struct {
	GeneratedAt string
	UserCount   int64
	RecordCount int64
	Books       []models.Book
}

// Render writes the design document as Markdown.
func (g *Generator) Render(w io.Writer) error {
	userCount, err := g.userRepo.Count(nil)
	if err != nil {
		return err
	}
	recordCount, err := g.recordRepo.Count(nil)
	if err != nil {
		return err
	}
	books, err := g.bookRepo.List(nil)
	if err != nil {
		return err
	}

	data := reportData{
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		UserCount:   userCount,
		RecordCount: recordCount,
		Books:       books,
	}
	return reportTemplate.Execute(w, data)
}

// WriteFile renders the document to the given path, replacing any previous one.
func (g *Generator) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return g.Render(f)
}

var reportTemplate = template.Must(template.New("report").Parse(`# 图书管理系统设计说明书

生成时间：{{.GeneratedAt}}

## 1. 系统体系架构

本系统采用三层架构设计，基于 Gin 框架开发：

- **表示层**：HTML 模板渲染用户界面，包括登录、注册、图书检索和用户中心等页面
- **业务逻辑层**：借阅服务与账户服务处理图书借阅、归还、搜索等核心功能
- **数据访问层**：GORM 与 PostgreSQL 交互，管理用户、图书和借阅记录数据

## 2. 系统功能结构

### 2.1 公共功能

- 用户注册/登录
- 图书检索（按书名、作者）

### 2.2 普通用户功能

- 查看个人借阅历史
- 借阅图书
- 归还图书

### 2.3 管理员功能

- 查看所有借阅记录
- 生成系统设计说明书

## 3. 核心类定义

- **User**：id, username, password, role
- **Book**：id, title, author, category, isbn, stock
- **BorrowRecord**：id, user_id, book_id, borrow_date, due_date, return_date, fine

类关系：User 与 BorrowRecord、Book 与 BorrowRecord 均为一对多关系。

## 4. 接口设计

| 请求方法 | 接口路径及说明 |
| --- | --- |
| GET/POST | /login - 用户登录 |
| GET/POST | /register - 用户注册 |
| GET | /dashboard - 用户中心 |
| POST | /search_books - 图书搜索 |
| GET | /borrow_book/:id - 借阅图书 |
| GET | /return_book/:id - 归还图书 |
| GET | /generate_docs - 生成设计说明书（管理员） |

## 5. 数据库物理设计

### users 表

| 字段名 | 类型 | 约束 |
| --- | --- | --- |
| id | INTEGER | PRIMARY KEY |
| username | VARCHAR(50) | UNIQUE, NOT NULL |
| password | VARCHAR(100) | NOT NULL |
| role | VARCHAR(20) | DEFAULT 'user' |

### books 表

| 字段名 | 类型 | 约束 |
| --- | --- | --- |
| id | INTEGER | PRIMARY KEY |
| title | VARCHAR(200) | NOT NULL |
| author | VARCHAR(100) | NOT NULL |
| category | VARCHAR(50) | |
| isbn | VARCHAR(20) | UNIQUE |
| stock | INTEGER | DEFAULT 1 |

### borrow_records 表

| 字段名 | 类型 | 约束 |
| --- | --- | --- |
| id | INTEGER | PRIMARY KEY |
| user_id | INTEGER | FOREIGN KEY, NOT NULL |
| book_id | INTEGER | FOREIGN KEY, NOT NULL |
| borrow_date | TIMESTAMP | NOT NULL |
| due_date | TIMESTAMP | NOT NULL |
| return_date | TIMESTAMP | NULLABLE |
| fine | NUMERIC | DEFAULT 0 |

## 6. 当前数据规模

- 注册用户：{{.UserCount}}
- 借阅记录：{{.RecordCount}}
- 馆藏图书：

| 书名 | 作者 | 分类 | ISBN | 库存 |
| --- | --- | --- | --- | --- |
{{range .Books}}| {{.Title}} | {{.Author}} | {{.Category}} | {{.ISBN}} | {{.Stock}} |
{{end}}`))
