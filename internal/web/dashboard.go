package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gitlab.com/yelinaung/trackify/internal/dashboard"
	"gitlab.com/yelinaung/trackify/internal/gemini"
	"gitlab.com/yelinaung/trackify/internal/ledger"
	"gitlab.com/yelinaung/trackify/internal/logger"
	"gitlab.com/yelinaung/trackify/internal/models"
	"gitlab.com/yelinaung/trackify/internal/report"
)

type sortOption struct {
	Key   ledger.SortKey
	Label string
}

var sortOptions = []sortOption{
	{ledger.SortAmountAsc, "Amount (Low → High)"},
	{ledger.SortAmountDesc, "Amount (High → Low)"},
	{ledger.SortDateAsc, "Date (Old → New)"},
	{ledger.SortDateDesc, "Date (New → Old)"},
}

// boardData is the dashboard part of a page.
type boardData struct {
	State            dashboard.ViewState
	View             ledger.View
	Categories       []string
	FilterCategories []string
	SortOptions      []sortOption
	Strict           bool
	Suggest          bool
	MaxRemarks       int
	ToggleForm       string
	ToggleFilters    string
	ToggleChart      string
	Version          uint64
}

// board returns the session's mounted dashboard.
func (s *Server) board(w http.ResponseWriter, r *http.Request) (*dashboard.Dashboard, bool) {
	sess := sessionFrom(r.Context())
	d, err := s.boards.Get(r.Context(), sess.Token, sess.User, sess.ExpiresAt)
	if err != nil {
		logger.Log.Error().Err(err).
			Str("user_hash", logger.HashUserID(sess.User.ID)).
			Msg("Failed to mount dashboard")
		http.Error(w, storeMessage(err), http.StatusServiceUnavailable)
		return nil, false
	}
	return d, true
}

func (s *Server) showDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := s.board(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	if q.Has("view") {
		d.SetView(filterInputFrom(q), ledger.ParseSortKey(q.Get("sort")), dashboard.Panels{
			Form:    q.Get("form") == "1",
			Filters: q.Get("filters") == "1",
			Chart:   q.Get("chart") == "1",
		})
	}

	version := d.Version()
	state := d.State()
	data := s.basePage(r, "Dashboard")
	data.Board = &boardData{
		Version:          version,
		State:            state,
		View:             d.View(s.now()),
		Categories:       models.DefaultCategories,
		FilterCategories: filterCategories(d.Records()),
		SortOptions:      sortOptions,
		Strict:           s.opts.StrictCategories,
		Suggest:          s.suggester != nil,
		MaxRemarks:       models.MaxRemarksLength,
		ToggleForm:       toggleURL(state, "form"),
		ToggleFilters:    toggleURL(state, "filters"),
		ToggleChart:      toggleURL(state, "chart"),
	}
	d.ClearMessage()

	s.render(w, http.StatusOK, "dashboard", data)
}

func (s *Server) submitExpense(w http.ResponseWriter, r *http.Request) {
	d, ok := s.board(w, r)
	if !ok {
		return
	}

	err := d.Submit(r.Context(), ledger.Form{
		Amount:   r.FormValue("amount"),
		Date:     r.FormValue("date"),
		Category: r.FormValue("category"),
		Remarks:  r.FormValue("remarks"),
	})
	if errors.Is(err, dashboard.ErrSubmitInFlight) {
		http.Error(w, "A submission is already in progress.", http.StatusConflict)
		return
	}
	// Other outcomes are recorded in the view state and shown after the redirect.
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) editExpense(w http.ResponseWriter, r *http.Request) {
	d, ok := s.board(w, r)
	if !ok {
		return
	}
	if err := d.Edit(chi.URLParam(r, "id")); err != nil {
		http.Error(w, "Expense not found.", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) cancelEdit(w http.ResponseWriter, r *http.Request) {
	d, ok := s.board(w, r)
	if !ok {
		return
	}
	d.CancelEdit()
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	d, ok := s.board(w, r)
	if !ok {
		return
	}
	_ = d.Delete(r.Context(), chi.URLParam(r, "id"))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	d, ok := s.board(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		http.Error(w, "Unsupported export format.", http.StatusBadRequest)
		return
	}

	data, filename, err := d.Export(report.ParseScope(q.Get("scope")), format)
	switch {
	case errors.Is(err, dashboard.ErrNoData):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	d, ok := s.board(w, r)
	if !ok {
		return
	}

	png, err := d.Chart()
	switch {
	case errors.Is(err, dashboard.ErrNoData):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		http.Error(w, "Failed to render chart.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// events streams a "change" event carrying the snapshot version on connect
// and after every snapshot the store pushes.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	d, ok := s.board(w, r)
	if !ok {
		return
	}

	changes, stop := d.Watch()
	defer stop()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := sendChange(w, rc, d); err != nil {
		logger.Log.Warn().Err(err).Msg("Event stream cannot flush")
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case _, open := <-changes:
			if !open {
				_, _ = fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				_ = rc.Flush()
				return
			}
			if err := sendChange(w, rc, d); err != nil {
				return
			}
		}
	}
}

func sendChange(w http.ResponseWriter, rc *http.ResponseController, d *dashboard.Dashboard) error {
	if _, err := fmt.Fprintf(w, "event: change\ndata: {\"version\":%d}\n\n", d.Version()); err != nil {
		return err
	}
	return rc.Flush()
}

func (s *Server) suggestCategory(w http.ResponseWriter, r *http.Request) {
	if s.suggester == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Category suggestions are not enabled."})
		return
	}

	suggestion, err := s.suggester.SuggestCategory(r.Context(), r.FormValue("remarks"), models.DefaultCategories)
	switch {
	case errors.Is(err, gemini.ErrEmptyRemarks):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Add remarks to get a suggestion."})
		return
	case err != nil:
		logger.Log.Warn().Err(err).Msg("Category suggestion failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Could not suggest a category right now."})
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to write JSON response")
	}
}

func filterInputFrom(q url.Values) dashboard.FilterInput {
	return dashboard.FilterInput{
		Category: q.Get("category"),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Min:      q.Get("min"),
		Max:      q.Get("max"),
		Search:   q.Get("search"),
	}
}

// viewValues encodes the view state as dashboard query parameters.
func viewValues(state dashboard.ViewState) url.Values {
	v := url.Values{"view": {"1"}}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("category", state.Filter.Category)
	set("from", state.Filter.From)
	set("to", state.Filter.To)
	set("min", state.Filter.Min)
	set("max", state.Filter.Max)
	set("search", state.Filter.Search)
	set("sort", string(state.Sort))

	flag := func(key string, on bool) {
		if on {
			v.Set(key, "1")
		}
	}
	flag("form", state.Panels.Form)
	flag("filters", state.Panels.Filters)
	flag("chart", state.Panels.Chart)
	return v
}

func toggleURL(state dashboard.ViewState, panel string) string {
	v := viewValues(state)
	if v.Get(panel) == "1" {
		v.Del(panel)
	} else {
		v.Set(panel, "1")
	}
	return "/dashboard?" + v.Encode()
}

// filterCategories lists the fixed categories followed by any others in use.
func filterCategories(records []models.Expense) []string {
	out := slices.Clone(models.DefaultCategories)
	for i := range records {
		if !slices.Contains(out, records[i].Category) {
			out = append(out, records[i].Category)
		}
	}
	return out
}
