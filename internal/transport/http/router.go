package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/workout_journal/internal/handlers"
	authmw "github.com/Skotchmaster/workout_journal/internal/middleware/auth"
)

type Deps struct {
	AuthHandler   *handlers.AuthHandler
	NoteHandler   *handlers.NoteHandler
	TagHandler    *handlers.TagHandler
	SearchHandler *handlers.SearchHandler
	JWTSecret     []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	api := e.Group("/api")

	api.POST("/signup", d.AuthHandler.SignUp)
	api.POST("/login", d.AuthHandler.Login)
	api.POST("/logout", d.AuthHandler.LogOut)
	api.POST("/refresh", d.AuthHandler.Refresh)
	api.POST("/forgot-password", d.AuthHandler.ForgotPassword)

	mw := authmw.NewSimpleAuth(d.JWTSecret)
	private := api.Group("", mw.RequireAuth)

	private.GET("/session", d.AuthHandler.Session)
	private.GET("/get-user", d.AuthHandler.GetUser)
	private.PUT("/update-user", d.AuthHandler.UpdateUser)

	private.GET("/notes", d.NoteHandler.ListNotes)
	private.GET("/notes/search", d.SearchHandler.Search)
	private.GET("/notes/by-tag/:tag", d.NoteHandler.NotesByTag)
	private.GET("/notes/:date", d.NoteHandler.GetNote)
	private.POST("/notes/:date", d.NoteHandler.SaveNote)

	private.POST("/tags", d.TagHandler.CreateTag)
	private.GET("/tags", d.TagHandler.ListTags)
	private.DELETE("/tags/:name", d.TagHandler.DeleteTag)
}
