package main

import (
	"crypto/md5"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

// --- Session helpers ---

func newStore(secretKey string) *sessions.CookieStore {
	s := sessions.NewCookieStore([]byte(secretKey))
	s.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
	}
	return s
}

func (a *App) currentUser(r *http.Request) *User {
	session, _ := a.store.Get(r, "session")
	userID, ok := session.Values["user_id"].(int64)
	if !ok {
		return nil
	}
	user, err := a.db.UserByID(userID)
	if err != nil {
		return nil
	}
	return user
}

func (a *App) addFlash(w http.ResponseWriter, r *http.Request, message string) {
	session, _ := a.store.Get(r, "session")
	session.AddFlash(message)
	session.Save(r, w)
}

func (a *App) getFlashes(w http.ResponseWriter, r *http.Request) []interface{} {
	session, _ := a.store.Get(r, "session")
	flashes := session.Flashes()
	session.Save(r, w)
	return flashes
}

// --- Password helpers ---

func hashPassword(password string) string {
	bytes, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes)
}

func checkPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// --- Template helpers ---

func gravatar(email string) string {
	h := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon&s=48", h)
}

func datetimeformat(ts int64) string {
	return time.Unix(ts, 0).Format("2006-01-02 @ 15:04")
}

func (a *App) renderTemplate(w http.ResponseWriter, r *http.Request, templateFile string, data map[string]interface{}) {
	funcMap := template.FuncMap{
		"gravatar":       gravatar,
		"datetimeformat": datetimeformat,
		"add":            func(x, y int) int { return x + y },
		"sub":            func(x, y int) int { return x - y },
	}

	tmpl := template.Must(template.New("layout.html").
		Funcs(funcMap).
		ParseFiles("templates/layout.html", "templates/"+templateFile))

	if _, ok := data["CurrentUser"]; !ok {
		data["CurrentUser"] = a.currentUser(r)
	}
	if _, ok := data["Flashes"]; !ok {
		data["Flashes"] = a.getFlashes(w, r)
	}

	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		a.log.WithError(err).Error("template render failed")
	}
}
