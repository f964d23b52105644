package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Nabothdaniel/exam-malpractice-project/internal/middleware"
	"github.com/Nabothdaniel/exam-malpractice-project/internal/services"
)

type Router struct {
	store         Store
	auth          *services.AuthService
	cases         *services.CaseService
	students      *services.StudentService
	caseTypes     *services.CaseTypeService
	investigators *services.InvestigatorService
	outbox        *services.Outbox
}

func NewRouter(store Store, uploader services.MediaUploader) *Router {
	students := services.NewStudentService(store)
	outbox := services.NewOutbox(store)
	numbers := services.NewCaseNumberGenerator(store)
	return &Router{
		store:         store,
		auth:          services.NewAuthService(store, middleware.SignToken),
		cases:         services.NewCaseService(store, students, numbers, outbox, uploader),
		students:      students,
		caseTypes:     services.NewCaseTypeService(store),
		investigators: services.NewInvestigatorService(store),
		outbox:        outbox,
	}
}

// Cases exposes the lifecycle service, e.g. for feed subscriptions.
func (rt *Router) Cases() *services.CaseService { return rt.cases }

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister)      // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)            // POST
	mux.HandleFunc("/api/cases", rt.handleCases)                 // GET, POST
	mux.HandleFunc("/api/cases/recent", rt.handleRecentCases)    // GET
	mux.HandleFunc("/api/cases/feed", rt.handleCaseFeed)         // GET long poll
	mux.HandleFunc("/api/cases/", rt.handleCaseScoped)           // GET/PUT/DELETE /api/cases/{id}, POST {id}/status, GET {id}/notifications
	mux.HandleFunc("/api/students", rt.handleStudents)           // GET
	mux.HandleFunc("/api/students/", rt.handleStudentScoped)     // GET /api/students/{id}
	mux.HandleFunc("/api/case-types", rt.handleCaseTypes)        // GET, POST
	mux.HandleFunc("/api/investigators", rt.handleInvestigators) // GET, POST
	mux.HandleFunc("/api/investigators/", rt.handleInvestigatorScoped)
	mux.HandleFunc("/api/notifications", rt.handleNotifications) // GET
	mux.HandleFunc("/api/audit", rt.handleAudit)                 // GET
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusInternalServerError
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		case services.ErrorBadGateway:
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]string{"error": se.Message, "code": string(se.Code)})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

// actor returns the authenticated admin's email, or fails the request.
func actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeErr(w, services.NewUnauthorizedError("unauthorized"))
		return "", false
	}
	return email, true
}

func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, services.NewInvalidError(err.Error()))
		return
	}
	res, err := rt.auth.Register(body.Email, body.Password, body.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": res.Token, "user_id": res.UserID})
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, services.NewInvalidError(err.Error()))
		return
	}
	res, err := rt.auth.Login(body.Email, body.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": res.Token, "user_id": res.UserID})
}

func (rt *Router) handleCases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cases, err := rt.cases.ListCases()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cases)
	case http.MethodPost:
		who, ok := actor(w, r)
		if !ok {
			return
		}
		input, err := decodeNewCase(r)
		if err != nil {
			writeErr(w, err)
			return
		}
		c, err := rt.cases.CreateCase(*input, who)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// decodeNewCase accepts either a JSON body or multipart/form-data with a
// "data" JSON field and an optional "media" file.
func decodeNewCase(r *http.Request) (*services.NewCaseInput, error) {
	var input services.NewCaseInput
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, services.NewInvalidError(err.Error())
		}
		if data := r.FormValue("data"); data != "" {
			if err := json.Unmarshal([]byte(data), &input); err != nil {
				return nil, services.NewInvalidError(err.Error())
			}
		}
		file, header, err := r.FormFile("media")
		if err == nil {
			defer file.Close()
			blob, err := io.ReadAll(file)
			if err != nil {
				return nil, services.NewInvalidError(err.Error())
			}
			input.Media = &services.MediaFile{Name: header.Filename, Data: blob}
		}
		return &input, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return nil, services.NewInvalidError(err.Error())
	}
	return &input, nil
}

// decodeCasePatch mirrors decodeNewCase for partial updates.
func decodeCasePatch(r *http.Request) (map[string]any, *services.MediaFile, error) {
	raw := map[string]any{}
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, nil, services.NewInvalidError(err.Error())
		}
		if data := r.FormValue("data"); data != "" {
			if err := json.Unmarshal([]byte(data), &raw); err != nil {
				return nil, nil, services.NewInvalidError(err.Error())
			}
		}
		var media *services.MediaFile
		file, header, err := r.FormFile("media")
		if err == nil {
			defer file.Close()
			blob, err := io.ReadAll(file)
			if err != nil {
				return nil, nil, services.NewInvalidError(err.Error())
			}
			media = &services.MediaFile{Name: header.Filename, Data: blob}
		}
		return raw, media, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, nil, services.NewInvalidError(err.Error())
	}
	return raw, nil, nil
}

func (rt *Router) handleRecentCases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cases, err := rt.cases.RecentCases()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cases)
}

// handleCaseFeed long-polls the case feed: it answers as soon as the case
// set changes, or with changed=false after the wait window. Clients re-fetch
// the list on changed=true and immediately poll again.
func (rt *Router) handleCaseFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	handle := rt.cases.Subscribe()
	defer handle.Cancel()

	wait := time.NewTimer(25 * time.Second)
	defer wait.Stop()
	select {
	case <-handle.C:
		writeJSON(w, http.StatusOK, map[string]bool{"changed": true})
	case <-wait.C:
		writeJSON(w, http.StatusOK, map[string]bool{"changed": false})
	case <-r.Context().Done():
	}
}

func (rt *Router) handleCaseScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/cases/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			c, err := rt.cases.GetCase(id)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, http.StatusOK, c)
		case http.MethodPut:
			if _, ok := actor(w, r); !ok {
				return
			}
			raw, media, err := decodeCasePatch(r)
			if err != nil {
				writeErr(w, err)
				return
			}
			if err := rt.cases.UpdateCase(id, raw, media); err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		case http.MethodDelete:
			who, ok := actor(w, r)
			if !ok {
				return
			}
			if err := rt.cases.DeleteCase(id, who); err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	switch parts[1] {
	case "status":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		who, ok := actor(w, r)
		if !ok {
			return
		}
		var body struct {
			Status string `json:"status"`
			Action string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeErr(w, services.NewInvalidError(err.Error()))
			return
		}
		if err := rt.cases.UpdateStatus(id, body.Status, body.Action, who); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case "notifications":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		events, err := rt.outbox.ListNotificationsByCase(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	default:
		http.NotFound(w, r)
	}
}

func (rt *Router) handleStudents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	students, err := rt.students.ListStudents()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (rt *Router) handleStudentScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/students/")
	st, err := rt.students.GetStudent(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (rt *Router) handleCaseTypes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		types, err := rt.caseTypes.ListWithCounts()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types)
	case http.MethodPost:
		if _, ok := actor(w, r); !ok {
			return
		}
		var ct services.CaseType
		if err := json.NewDecoder(r.Body).Decode(&ct); err != nil {
			writeErr(w, services.NewInvalidError(err.Error()))
			return
		}
		created, err := rt.caseTypes.AddCaseType(&ct)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (rt *Router) handleInvestigators(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out, err := rt.investigators.ListWithStats()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		who, ok := actor(w, r)
		if !ok {
			return
		}
		var input services.NewInvestigatorInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeErr(w, services.NewInvalidError(err.Error()))
			return
		}
		inv, err := rt.investigators.AddInvestigator(input, who)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, inv)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (rt *Router) handleInvestigatorScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/investigators/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "status" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, services.NewInvalidError(err.Error()))
		return
	}
	if err := rt.investigators.SetStatus(parts[0], body.Status, who); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (rt *Router) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := actor(w, r); !ok {
		return
	}
	events, err := rt.outbox.ListNotifications()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (rt *Router) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := actor(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, rt.store.ListAudit())
}
