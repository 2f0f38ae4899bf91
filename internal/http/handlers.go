package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"topicspin-api/internal/assign"
	"topicspin-api/internal/models"
	"topicspin-api/internal/topics"
)

type Assigner interface {
	Assign(ctx context.Context, sub models.Submission) (assign.Result, error)
}

type Topics interface {
	AvailableTopics(ctx context.Context, channel, category string, room int) []string
	Pools() topics.Pools
}

type Finder interface {
	FindExisting(ctx context.Context, employeeID string) (*models.Assignment, error)
}

type api struct {
	assigner Assigner
	topics   Topics
	finder   Finder
	rooms    []int
	validate *validator.Validate
}

type optionsResponse struct {
	Channels   []models.Channel    `json:"channels"`
	Categories []models.Category   `json:"categories"`
	Rooms      []int               `json:"rooms"`
	Pools      map[string][]string `json:"pools"`
}

func (a *api) options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, optionsResponse{
		Channels:   []models.Channel{models.ChannelBanca, models.ChannelRetail},
		Categories: []models.Category{models.CategoryRookie, models.CategoryVintage},
		Rooms:      a.rooms,
		Pools:      a.topics.Pools(),
	})
}

type availableResponse struct {
	Channel  string   `json:"channel"`
	Category string   `json:"category"`
	Room     int      `json:"room"`
	Topics   []string `json:"topics"`
	Count    int      `json:"count"`
}

// available lists the topics still free. An unknown channel or category
// yields an empty list.
func (a *api) available(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	channel := strings.TrimSpace(q.Get("channel"))
	category := strings.TrimSpace(q.Get("category"))
	room, err := strconv.Atoi(q.Get("room"))
	if channel == "" || category == "" || err != nil || !slices.Contains(a.rooms, room) {
		WriteError(w, http.StatusBadRequest, CodeInvalidInput, "channel, category and a valid room are required")
		return
	}
	list := a.topics.AvailableTopics(r.Context(), channel, category, room)
	writeJSON(w, http.StatusOK, availableResponse{
		Channel: channel, Category: category, Room: room, Topics: list, Count: len(list),
	})
}

type validationError struct {
	Error
	Fields []string `json:"fields"`
}

func (a *api) submit(w http.ResponseWriter, r *http.Request) {
	var sub models.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		WriteError(w, http.StatusBadRequest, CodeInvalidInput, "bad json")
		return
	}
	if msgs := checkSubmission(a.validate, &sub, a.rooms); len(msgs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationError{
			Error:  Error{Code: CodeInvalidInput, Message: msgs[0]},
			Fields: msgs,
		})
		return
	}

	res, err := a.assigner.Assign(r.Context(), sub)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Existing {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (a *api) lookup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeId")
	found, err := a.finder.FindExisting(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if found == nil {
		WriteError(w, http.StatusNotFound, CodeNotFound, "no assignment for this employee")
		return
	}
	writeJSON(w, http.StatusOK, found)
}
