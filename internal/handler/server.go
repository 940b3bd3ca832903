// Package handler implements the HTTP API of the trip planner.
// All handlers are methods on Server. Methods are split into domain-specific
// files (trip.go, activity.go, checklist.go, ...) but share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/pkordes/trip-planner/backend/internal/auth"
	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/geocode"
	"github.com/pkordes/trip-planner/backend/internal/middleware"
	"github.com/pkordes/trip-planner/backend/internal/places"
	"github.com/pkordes/trip-planner/backend/internal/service"
	"github.com/pkordes/trip-planner/backend/internal/watch"
)

// The interfaces below are the operations each handler group depends on.
// They are declared here, in the consumer package, so handler tests can
// inject doubles without touching the database or service layer.

// TripServicer reads the itinerary and writes whole days.
type TripServicer interface {
	Load(ctx context.Context) (domain.Trip, error)
	Day(ctx context.Context, dayID string) (domain.Day, error)
	ReplaceDay(ctx context.Context, dayID string, d domain.Day) (domain.Day, error)
	Seed(ctx context.Context) (bool, error)
	Import(ctx context.Context, days []domain.Day) (int, error)
}

// ActivityServicer mutates activities within a day.
type ActivityServicer interface {
	Add(ctx context.Context, dayID string, a domain.Activity) (domain.Activity, error)
	Update(ctx context.Context, dayID, activityID string, p domain.ActivityPatch) (domain.Activity, error)
	Delete(ctx context.Context, dayID, activityID string) error
	Move(ctx context.Context, dayID, activityID string, to int) ([]string, error)
	SetOrder(ctx context.Context, dayID string, order []string) error
	AddAttachment(ctx context.Context, dayID, activityID, filename, contentType string, body io.Reader, size int64) (domain.Attachment, error)
	RemoveAttachment(ctx context.Context, dayID, activityID, objectPath string) error
}

// BudgetServicer serves and updates the budget.
type BudgetServicer interface {
	Overview(ctx context.Context) (domain.BudgetOverview, error)
	Recalculate(ctx context.Context, total *float64) (domain.Budget, error)
	SetCategoryLimits(ctx context.Context, limits map[string]float64) (domain.Budget, error)
	SetTagLimits(ctx context.Context, limits map[string]float64) (domain.Budget, error)
}

// ChecklistServicer manages the preparation checklist.
type ChecklistServicer interface {
	Load(ctx context.Context) (domain.Checklist, error)
	Items(ctx context.Context, f domain.ChecklistFilter) ([]domain.ChecklistItem, error)
	Summary(ctx context.Context) (service.ChecklistSummary, error)
	Add(ctx context.Context, it domain.ChecklistItem) (domain.ChecklistItem, error)
	Update(ctx context.Context, id string, p domain.ChecklistPatch) (domain.ChecklistItem, error)
	Toggle(ctx context.Context, id string) (domain.ChecklistItem, error)
	Delete(ctx context.Context, id string) error
	Move(ctx context.Context, id string, to int) ([]string, error)
	SetOrder(ctx context.Context, order []string) error
}

// GeoServicer fronts the weather, places and geocoding providers.
type GeoServicer interface {
	Forecast(ctx context.Context, lat, lon float64) ([]domain.DailyForecast, error)
	ActivityForecast(ctx context.Context, dayID, activityID string) ([]domain.DailyForecast, error)
	Nearby(ctx context.Context, q places.Query, sortBy string) ([]domain.NearbyPlace, error)
	ActivityNearby(ctx context.Context, dayID, activityID string, q places.Query, sortBy string) ([]domain.NearbyPlace, error)
	Geocode(ctx context.Context, address string) (geocode.Point, error)
}

// EnrichRunner runs a geocoding pass on demand.
type EnrichRunner interface {
	Run(ctx context.Context) (service.EnrichResult, error)
}

// ExportServicer produces the flat export.
type ExportServicer interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// AuthServicer signs users in and out.
type AuthServicer interface {
	middleware.Authenticator
	Login(ctx context.Context, email, password string) (service.Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Me(ctx context.Context, claims *auth.Claims) (domain.User, error)
}

// Subscriber registers interest in a change path. *watch.Hub satisfies it.
type Subscriber interface {
	Subscribe(path string) *watch.Subscription
}

// Deps bundles the collaborators of Server. A nil service disables its routes.
type Deps struct {
	Trips      TripServicer
	Activities ActivityServicer
	Budget     BudgetServicer
	Checklist  ChecklistServicer
	Geo        GeoServicer
	Enricher   EnrichRunner
	Export     ExportServicer
	Auth       AuthServicer
	Hub        Subscriber

	// Files, when set, is served under /files/ (local attachment storage).
	Files http.Handler

	// MaxUploadBytes caps attachment uploads. Zero means 10 MiB.
	MaxUploadBytes int64

	// AllowedOrigins restricts WebSocket upgrades. Empty allows any origin.
	AllowedOrigins []string

	Log *slog.Logger
}

// Server holds the dependencies shared by every handler.
type Server struct {
	trips      TripServicer
	activities ActivityServicer
	budget     BudgetServicer
	checklist  ChecklistServicer
	geo        GeoServicer
	enricher   EnrichRunner
	export     ExportServicer
	auth       AuthServicer
	hub        Subscriber
	files      http.Handler

	maxUpload int64
	upgrader  websocket.Upgrader
	validate  *validator.Validate
	log       *slog.Logger
}

const defaultMaxUpload = 10 << 20

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	s := &Server{
		trips:      d.Trips,
		activities: d.Activities,
		budget:     d.Budget,
		checklist:  d.Checklist,
		geo:        d.Geo,
		enricher:   d.Enricher,
		export:     d.Export,
		auth:       d.Auth,
		hub:        d.Hub,
		files:      d.Files,
		maxUpload:  maxUpload,
		validate:   newValidator(),
		log:        log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(d.AllowedOrigins),
	}
	return s
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(Deps{})
}

// Routes builds the API router. Everything except the health check, login
// and static files requires a bearer token when an AuthServicer is set.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	if s.files != nil {
		r.Handle("/files/*", http.StripPrefix("/files/", s.files))
	}
	if s.auth != nil {
		r.Post("/auth/login", s.Login)
	}

	r.Group(func(r chi.Router) {
		if s.auth != nil {
			r.Use(middleware.RequireAuth(s.auth))
			r.Post("/auth/logout", s.Logout)
			r.Get("/auth/me", s.Me)
		}

		if s.trips != nil {
			r.Get("/trip", s.GetTrip)
			r.Post("/trip/seed", s.SeedTrip)
			r.Post("/trip/import", s.ImportDays)
			r.Get("/trip/days/{dayId}", s.GetDay)
			r.Put("/trip/days/{dayId}", s.ReplaceDay)
		}
		if s.export != nil {
			r.Get("/trip/export", s.GetExport)
		}
		if s.activities != nil {
			const acts = "/trip/days/{dayId}/activities"
			r.Post(acts, s.CreateActivity)
			r.Put(acts+"/order", s.SetActivityOrder)
			r.Patch(acts+"/{activityId}", s.UpdateActivity)
			r.Delete(acts+"/{activityId}", s.DeleteActivity)
			r.Post(acts+"/{activityId}/move", s.MoveActivity)
			r.Post(acts+"/{activityId}/attachments", s.UploadAttachment)
			r.Delete(acts+"/{activityId}/attachments", s.DeleteAttachment)
		}
		if s.budget != nil {
			r.Get("/trip/budget", s.GetBudget)
			r.Put("/trip/budget", s.UpdateBudget)
			r.Put("/trip/budget/category-limits", s.SetCategoryLimits)
			r.Put("/trip/budget/tag-limits", s.SetTagLimits)
		}
		if s.checklist != nil {
			r.Get("/checklist", s.GetChecklist)
			r.Put("/checklist/order", s.SetChecklistOrder)
			r.Post("/checklist/items", s.CreateChecklistItem)
			r.Patch("/checklist/items/{itemId}", s.UpdateChecklistItem)
			r.Delete("/checklist/items/{itemId}", s.DeleteChecklistItem)
			r.Post("/checklist/items/{itemId}/toggle", s.ToggleChecklistItem)
			r.Post("/checklist/items/{itemId}/move", s.MoveChecklistItem)
		}
		if s.geo != nil {
			r.Get("/weather", s.GetWeather)
			r.Get("/places/nearby", s.GetNearby)
			r.Get("/geocode", s.GetGeocode)
			r.Get("/trip/days/{dayId}/activities/{activityId}/weather", s.GetActivityWeather)
			r.Get("/trip/days/{dayId}/activities/{activityId}/nearby", s.GetActivityNearby)
		}
		if s.enricher != nil {
			r.Post("/geocode/refresh", s.RefreshGeocoding)
		}
		if s.hub != nil {
			r.Get("/ws", s.Subscribe)
		}
	})
	return r
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(set) == 0 || set["*"] || origin == "" || set[origin]
	}
}
