package handler

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinewave/showtime-booking/internal/model"
	"github.com/cinewave/showtime-booking/internal/repository"
)

// BrowseHandler serves the read-only catalog: movies and their
// scheduled showtimes.  These routes sit behind the response cache.
type BrowseHandler struct {
	Movies    *repository.MovieRepo
	Showtimes *repository.ShowtimeRepo
	Theaters  *repository.TheaterRepo
}

// ListMovies returns movies filtered by status, defaulting to those
// currently showing.
func (h *BrowseHandler) ListMovies(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		status = "NOW_SHOWING"
	}
	movies, err := h.Movies.ListByStatus(c.Request().Context(), status)
	if err != nil {
		log.Printf("[BROWSE] list movies: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load movies"})
	}
	views := make([]echo.Map, 0, len(movies))
	for _, m := range movies {
		views = append(views, movieJSON(m))
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": views, "count": len(views)})
}

// GetMovie returns a single movie.
func (h *BrowseHandler) GetMovie(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	movie, err := h.Movies.GetByID(c.Request().Context(), id)
	if err == repository.ErrMovieNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
	} else if err != nil {
		log.Printf("[BROWSE] load movie %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load movie"})
	}
	return c.JSON(http.StatusOK, echo.Map{"movie": movieJSON(movie)})
}

// ListTheaters returns all theaters, optionally filtered by city.
func (h *BrowseHandler) ListTheaters(c echo.Context) error {
	theaters, err := h.Theaters.List(c.Request().Context(), c.QueryParam("city"))
	if err != nil {
		log.Printf("[BROWSE] list theaters: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load theaters"})
	}
	views := make([]echo.Map, 0, len(theaters))
	for _, t := range theaters {
		views = append(views, theaterJSON(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"theaters": views, "count": len(views)})
}

// GetTheater returns a single theater.
func (h *BrowseHandler) GetTheater(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theater id"})
	}
	theater, err := h.Theaters.GetByID(c.Request().Context(), id)
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "theater not found"})
	} else if err != nil {
		log.Printf("[BROWSE] load theater %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load theater"})
	}
	return c.JSON(http.StatusOK, echo.Map{"theater": theaterJSON(theater)})
}

// ListShowtimes returns a movie's scheduled showtimes grouped by
// theater.  Optional query filters: date (YYYY-MM-DD), language,
// format.
func (h *BrowseHandler) ListShowtimes(c echo.Context) error {
	movieID, ok := pathID(c, "movieID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Movies.GetByID(ctx, movieID); err != nil {
		if err == repository.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load movie"})
	}

	var date *time.Time
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		date = &d
	}

	listings, err := h.Showtimes.ListByMovie(ctx, movieID, date, c.QueryParam("language"), c.QueryParam("format"))
	if err != nil {
		log.Printf("[BROWSE] list showtimes for movie %d: %v", movieID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load showtimes"})
	}

	// The repository orders rows by theater, so grouping preserves
	// theater order without a second sort.
	type theaterGroup struct {
		Theater   echo.Map   `json:"theater"`
		Showtimes []echo.Map `json:"showtimes"`
	}
	var groups []*theaterGroup
	index := make(map[uint64]*theaterGroup)
	for _, l := range listings {
		g, seen := index[l.TheaterID]
		if !seen {
			g = &theaterGroup{Theater: echo.Map{
				"id":       l.TheaterID,
				"name":     l.TheaterName,
				"location": l.TheaterLocation,
			}}
			index[l.TheaterID] = g
			groups = append(groups, g)
		}
		g.Showtimes = append(g.Showtimes, echo.Map{
			"id":              l.ID,
			"starts_at":       l.StartsAt,
			"language":        l.Language,
			"format":          l.Format,
			"available_seats": l.AvailableSeats,
			"total_seats":     l.TotalSeats,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"theaters": groups, "count": len(listings)})
}

func theaterJSON(t model.Theater) echo.Map {
	return echo.Map{
		"id":       t.ID,
		"name":     t.Name,
		"city":     t.City,
		"location": t.Location,
	}
}

func movieJSON(m model.Movie) echo.Map {
	return echo.Map{
		"id":            m.ID,
		"title":         m.Title,
		"description":   m.Description,
		"duration_min":  m.DurationMin,
		"certification": m.Certification,
		"rating":        m.Rating,
		"poster":        m.Poster,
		"status":        m.Status,
		"release_date":  m.ReleaseDate.Format("2006-01-02"),
	}
}
