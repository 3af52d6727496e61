package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/adamsujeta/ASPForum/internal/domain"
)

func (a *api) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	users, err := a.moderationSvc.ListUsers(r.Context(), q.Get("q"), limit, offset)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (a *api) handleAdminGetUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "missing_id", "user id is required")
		return
	}

	u, err := a.moderationSvc.GetUser(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	writeUser(w, http.StatusOK, u)
}

func (a *api) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "missing_id", "user id is required")
		return
	}

	var req updateDetailsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	u, err := a.moderationSvc.UpdateUser(r.Context(), id, req.Username, req.Email, req.PostsPerPage)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	writeUser(w, http.StatusOK, u)
}

func (a *api) handleAdminToggleLockout(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "missing_id", "user id is required")
		return
	}

	locked, err := a.moderationSvc.ToggleLockout(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	// The admin screen shows the user list after a lockout flip, so the
	// response carries the refreshed first page alongside the new flag.
	users, err := a.moderationSvc.ListUsers(r.Context(), "", 0, 0)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":         id,
		"lockout_enabled": locked,
		"users":           out,
	})
}

func (a *api) handleAdminToggleAdminRole(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "missing_id", "user id is required")
		return
	}

	isAdmin, err := a.moderationSvc.ToggleAdminRole(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"user_id": id, "is_admin": isAdmin})
}

func (a *api) handleAdminListAssignments(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "missing_id", "user id is required")
		return
	}

	assignments, err := a.moderationSvc.ListAssignments(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out := make([]assignmentPayload, 0, len(assignments))
	for _, m := range assignments {
		out = append(out, assignmentPayload{
			UserID:       m.UserID,
			SubjectID:    m.SubjectID,
			SubjectTitle: m.SubjectTitle,
			CreatedAt:    m.CreatedAt,
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"assignments": out})
}

type assignmentPayload struct {
	UserID       string    `json:"user_id"`
	SubjectID    int       `json:"subject_id"`
	SubjectTitle string    `json:"subject_title"`
	CreatedAt    time.Time `json:"created_at"`
}

type moderatorRequest struct {
	UserID    string `json:"user_id"`
	SubjectID int    `json:"subject_id"`
}

func (a *api) handleAdminAssignModerator(w http.ResponseWriter, r *http.Request) {
	var req moderatorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	if err := a.moderationSvc.AssignModerator(r.Context(), req.SubjectID, req.UserID); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleAdminRevokeModerator(w http.ResponseWriter, r *http.Request) {
	var req moderatorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	if err := a.moderationSvc.RevokeModerator(r.Context(), req.SubjectID, req.UserID); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryPayload struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type subjectPayload struct {
	ID         int    `json:"id"`
	CategoryID int    `json:"category_id"`
	Title      string `json:"title"`
}

type newsPayload struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toSubjectPayloads(in []domain.Subject) []subjectPayload {
	out := make([]subjectPayload, 0, len(in))
	for _, s := range in {
		out = append(out, subjectPayload{ID: s.ID, CategoryID: s.CategoryID, Title: s.Title})
	}
	return out
}

func (a *api) handleAdminListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.moderationSvc.ListCategories(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out := make([]categoryPayload, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryPayload{ID: c.ID, Title: c.Title})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (a *api) handleAdminListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := a.moderationSvc.ListSubjects(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"subjects": toSubjectPayloads(subjects)})
}

func (a *api) handleAdminListCategorySubjects(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing_id", "category id is required")
		return
	}

	subjects, err := a.moderationSvc.ListSubjectsByCategory(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"subjects": toSubjectPayloads(subjects)})
}

func (a *api) handleAdminListNews(w http.ResponseWriter, r *http.Request) {
	news, err := a.moderationSvc.ListNews(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out := make([]newsPayload, 0, len(news))
	for _, n := range news {
		out = append(out, newsPayload{ID: n.ID, Title: n.Title, Content: n.Content, CreatedAt: n.CreatedAt})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"news": out})
}
