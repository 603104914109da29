package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// GET / — personal timeline (redirect to /public if not logged in)
func (a *App) timelineHandler(w http.ResponseWriter, r *http.Request) {
	user := a.currentUser(r)
	if user == nil {
		http.Redirect(w, r, "/public", http.StatusFound)
		return
	}

	a.log.WithField("remote", r.RemoteAddr).Info("visitor on timeline")

	page := pageParam(r)
	messages, err := a.db.Messages(scopeHome, user.UserID, page, a.cfg.PerPage)
	if err != nil {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}

	a.renderTemplate(w, r, "timeline.html", map[string]interface{}{
		"Messages":    messages,
		"CurrentUser": user,
		"IsTimeline":  true,
		"Page":        page,
		"HasMore":     len(messages) == a.cfg.PerPage,
	})
}

// GET /public — public timeline
func (a *App) publicTimelineHandler(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	messages, err := a.db.Messages(scopePublic, 0, page, a.cfg.PerPage)
	if err != nil {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}

	a.renderTemplate(w, r, "timeline.html", map[string]interface{}{
		"Messages": messages,
		"IsPublic": true,
		"Page":     page,
		"HasMore":  len(messages) == a.cfg.PerPage,
	})
}

// GET /{username} — user timeline
func (a *App) userTimelineHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	profileUser, err := a.db.UserByUsername(username)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}

	followed := false
	currentUser := a.currentUser(r)
	if currentUser != nil {
		followed, err = a.db.IsFollowing(currentUser.UserID, profileUser.UserID)
		if err != nil {
			http.Error(w, "DB error", http.StatusInternalServerError)
			return
		}
	}

	page := pageParam(r)
	messages, err := a.db.Messages(scopeProfile, profileUser.UserID, page, a.cfg.PerPage)
	if err != nil {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}

	a.renderTemplate(w, r, "timeline.html", map[string]interface{}{
		"Messages":    messages,
		"IsUser":      true,
		"ProfileUser": profileUser,
		"Followed":    followed,
		"Page":        page,
		"HasMore":     len(messages) == a.cfg.PerPage,
	})
}

// GET /{username}/follow
func (a *App) followHandler(w http.ResponseWriter, r *http.Request) {
	user := a.currentUser(r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	username := mux.Vars(r)["username"]
	whomID, err := a.db.UserID(username)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}

	if err := a.db.Follow(user.UserID, whomID); err != nil {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}
	a.addFlash(w, r, fmt.Sprintf("You are now following \"%s\"", username))
	http.Redirect(w, r, "/"+username, http.StatusFound)
}

// GET /{username}/unfollow
func (a *App) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	user := a.currentUser(r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	username := mux.Vars(r)["username"]
	whomID, err := a.db.UserID(username)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}

	if err := a.db.Unfollow(user.UserID, whomID); err != nil {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}
	a.addFlash(w, r, fmt.Sprintf("You are no longer following \"%s\"", username))
	http.Redirect(w, r, "/"+username, http.StatusFound)
}

// POST /add_message — empty text is dropped without an error, as the
// original application does.
func (a *App) addMessageHandler(w http.ResponseWriter, r *http.Request) {
	user := a.currentUser(r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	text := r.FormValue("text")
	if text != "" {
		if _, err := a.db.CreateMessage(user.UserID, text, time.Now().Unix()); err != nil {
			http.Error(w, "DB error", http.StatusInternalServerError)
			return
		}
		a.addFlash(w, r, "Your message was recorded")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// GET + POST /login
func (a *App) loginHandler(w http.ResponseWriter, r *http.Request) {
	if a.currentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	errorMsg := ""
	if r.Method == http.MethodPost {
		username := r.FormValue("username")
		password := r.FormValue("password")

		user, err := a.db.UserByUsername(username)
		if errors.Is(err, ErrNotFound) {
			errorMsg = "Invalid username"
		} else if err != nil {
			http.Error(w, "DB error", http.StatusInternalServerError)
			return
		} else if !checkPassword(user.PwHash, password) {
			errorMsg = "Invalid password"
		} else {
			session, _ := a.store.Get(r, "session")
			session.Values["user_id"] = user.UserID
			session.Save(r, w)
			a.addFlash(w, r, "You were logged in")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}

	a.renderTemplate(w, r, "login.html", map[string]interface{}{
		"Error":    errorMsg,
		"Username": r.FormValue("username"),
	})
}

// GET + POST /register
func (a *App) registerHandler(w http.ResponseWriter, r *http.Request) {
	if a.currentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	errorMsg := ""
	if r.Method == http.MethodPost {
		username := r.FormValue("username")
		email := r.FormValue("email")
		password := r.FormValue("password")
		password2 := r.FormValue("password2")

		if username == "" {
			errorMsg = "You have to enter a username"
		} else if email == "" || !strings.Contains(email, "@") {
			errorMsg = "You have to enter a valid email address"
		} else if password == "" {
			errorMsg = "You have to enter a password"
		} else if password != password2 {
			errorMsg = "The two passwords do not match"
		} else {
			_, err := a.db.CreateUser(username, email, hashPassword(password))
			if errors.Is(err, ErrUsernameTaken) {
				errorMsg = "The username is already taken"
			} else if err != nil {
				http.Error(w, "DB error", http.StatusInternalServerError)
				return
			} else {
				a.addFlash(w, r, "You were successfully registered and can login now")
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
		}
	}

	a.renderTemplate(w, r, "register.html", map[string]interface{}{
		"Error":    errorMsg,
		"Username": r.FormValue("username"),
		"Email":    r.FormValue("email"),
	})
}

// GET /logout
func (a *App) logoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := a.store.Get(r, "session")
	delete(session.Values, "user_id")
	session.Save(r, w)
	a.addFlash(w, r, "You were logged out")
	http.Redirect(w, r, "/public", http.StatusFound)
}
