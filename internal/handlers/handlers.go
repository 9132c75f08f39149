package handlers

import (
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/pluvial233/WHU-teamwork/internal/middleware"
	"github.com/pluvial233/WHU-teamwork/internal/models"
	"github.com/pluvial233/WHU-teamwork/internal/reporting"
	"github.com/pluvial233/WHU-teamwork/internal/services"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type WebHandler struct {
	accounts services.AccountService
	loans    services.LoanService
	reports  *reporting.Generator
	docsPath string
}

// RegisterRoutes installs the HTML templates and the full route surface on the
// engine. Typed rejections from the loan service (no stock, not owner, already
// returned) are translated here into a redirect back to the dashboard; they are
// never surfaced as server errors.
func RegisterRoutes(r *gin.Engine, accounts services.AccountService, loans services.LoanService, reports *reporting.Generator, docsPath string) {
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.tmpl")))

	h := &WebHandler{
		accounts: accounts,
		loans:    loans,
		reports:  reports,
		docsPath: docsPath,
	}

	r.GET("/", h.index)
	r.GET("/register", h.showRegister)
	r.POST("/register", h.register)
	r.GET("/login", h.showLogin)
	r.POST("/login", h.login)
	r.GET("/logout", h.logout)

	authed := r.Group("/", middleware.RequireLogin())
	authed.GET("/dashboard", h.dashboard)
	authed.POST("/search_books", h.searchBooks)
	authed.GET("/borrow_book/:id", h.borrowBook)
	authed.GET("/return_book/:id", h.returnBook)
	authed.GET("/generate_docs", middleware.RequireAdmin(), h.generateDocs)
}

func (h *WebHandler) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", gin.H{})
}

func (h *WebHandler) showRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "register.tmpl", gin.H{})
}

func (h *WebHandler) register(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	_, err := h.accounts.Register(username, password)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			c.HTML(http.StatusOK, "register.tmpl", gin.H{"Error": "用户名已存在"})
			return
		}
		c.HTML(http.StatusInternalServerError, "register.tmpl", gin.H{"Error": "注册失败，请稍后重试"})
		return
	}
	c.HTML(http.StatusOK, "register.tmpl", gin.H{"Success": "注册成功，请登录"})
}

func (h *WebHandler) showLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.tmpl", gin.H{})
}

func (h *WebHandler) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	user, err := h.accounts.Authenticate(username, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.HTML(http.StatusOK, "login.tmpl", gin.H{"Error": "用户名或密码错误"})
			return
		}
		c.HTML(http.StatusInternalServerError, "login.tmpl", gin.H{"Error": "登录失败，请稍后重试"})
		return
	}

	sess := sessions.Default(c)
	sess.Set(middleware.SessionUserID, user.ID)
	sess.Set(middleware.SessionRole, string(user.Role))
	if err := sess.Save(); err != nil {
		log.Printf("[ERROR] login: failed to save session for user %q: %v", username, err)
		c.HTML(http.StatusInternalServerError, "login.tmpl", gin.H{"Error": "登录失败，请稍后重试"})
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *WebHandler) logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Delete(middleware.SessionUserID)
	sess.Delete(middleware.SessionRole)
	_ = sess.Save()
	c.Redirect(http.StatusFound, "/")
}

// currentUser resolves the session's account. The guard middleware has already
// ensured a user id is present; a stale id (deleted session user) falls back to
// the login page.
func (h *WebHandler) currentUser(c *gin.Context) (*models.User, bool) {
	sess := sessions.Default(c)
	id, ok := sess.Get(middleware.SessionUserID).(uint)
	if !ok {
		return nil, false
	}
	user, err := h.accounts.GetUser(id)
	if err != nil {
		return nil, false
	}
	return user, true
}

func (h *WebHandler) dashboard(c *gin.Context) {
	h.renderDashboard(c, nil, "", false)
}

func (h *WebHandler) searchBooks(c *gin.Context) {
	query := c.PostForm("search_query")
	results, err := h.loans.Search(query)
	if err != nil {
		log.Printf("[ERROR] searchBooks: search %q failed: %v", query, err)
		c.String(http.StatusInternalServerError, "搜索失败")
		return
	}
	h.renderDashboard(c, results, query, true)
}

func (h *WebHandler) renderDashboard(c *gin.Context, results []models.Book, query string, searched bool) {
	user, ok := h.currentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	records, err := h.loans.ListRecords(user)
	if err != nil {
		log.Printf("[ERROR] dashboard: failed to list records for user %d: %v", user.ID, err)
		c.String(http.StatusInternalServerError, "加载借阅记录失败")
		return
	}

	c.HTML(http.StatusOK, "dashboard.tmpl", gin.H{
		"User":          user,
		"IsAdmin":       user.IsAdmin(),
		"Records":       records,
		"SearchResults": results,
		"SearchQuery":   query,
		"Searched":      searched,
	})
}

func (h *WebHandler) borrowBook(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	bookID, err := parseID(c.Param("id"))
	if err != nil {
		c.String(http.StatusNotFound, "图书不存在")
		return
	}

	if _, err := h.loans.Borrow(user.ID, bookID); err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			c.String(http.StatusNotFound, "图书不存在")
		case errors.Is(err, services.ErrNoStock):
			// Depleted stock is not an error to the user; back to the dashboard.
			c.Redirect(http.StatusFound, "/dashboard")
		default:
			c.String(http.StatusInternalServerError, "借阅失败")
		}
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *WebHandler) returnBook(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	recordID, err := parseID(c.Param("id"))
	if err != nil {
		c.String(http.StatusNotFound, "借阅记录不存在")
		return
	}

	if err := h.loans.Return(user.ID, recordID); err != nil {
		switch {
		case errors.Is(err, services.ErrRecordNotFound):
			c.String(http.StatusNotFound, "借阅记录不存在")
		case errors.Is(err, services.ErrNotOwner), errors.Is(err, services.ErrAlreadyReturned):
			c.Redirect(http.StatusFound, "/dashboard")
		default:
			c.String(http.StatusInternalServerError, "归还失败")
		}
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *WebHandler) generateDocs(c *gin.Context) {
	if err := h.reports.WriteFile(h.docsPath); err != nil {
		log.Printf("[ERROR] generateDocs: failed to write %s: %v", h.docsPath, err)
		c.String(http.StatusInternalServerError, "生成设计说明书失败")
		return
	}
	c.String(http.StatusOK, "系统设计说明书已生成：%s", h.docsPath)
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
