// Package web is the server-rendered storefront. It holds no data of its own:
// every page is built from calls to the parts API through pkg/client, with
// the browser's session kept in cookies.
package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"autoparts/internal/config"
	"autoparts/internal/inventory"
	"autoparts/internal/models"
	"autoparts/pkg/client"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

const (
	localClient = "api"

	relatedCount   = 4
	sessionTTL     = 24 * time.Hour
	maxUploadBytes = 5 << 20
)

// Storefront serves the storefront pages.
type Storefront struct {
	cfg config.StorefrontConfig
	log *zap.Logger
}

// NewStorefront returns a storefront talking to the API at cfg.APIBaseURL.
func NewStorefront(cfg config.StorefrontConfig, log *zap.Logger) *Storefront {
	return &Storefront{cfg: cfg, log: log}
}

// NewApp returns the storefront application. accessLog receives one line per
// request.
func NewApp(s *Storefront, views fiber.Views, accessLog io.Writer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "AutoParts Pro",
		Views:                 views,
		ErrorHandler:          s.errorPage,
		BodyLimit:             maxUploadBytes + 1<<20,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${respHeader:X-Request-ID} ${status} - ${latency} ${method} ${path}\n",
		Output: accessLog,
	}))
	app.Use(s.session)

	app.Get("/", s.home)
	app.Get("/parts", s.catalog)
	app.Get("/parts/:id", s.detail)

	app.Get("/login", s.loginForm)
	app.Post("/login", s.login)
	app.Get("/register", s.registerForm)
	app.Post("/register", s.register)
	app.Get("/logout", s.logout)
	app.Post("/logout", s.logout)

	dash := app.Group("/dashboard", s.requireSession)
	dash.Get("/", s.dashboard)
	dash.Post("/parts", s.createPart)
	dash.Get("/parts/:id/edit", s.editForm)
	dash.Post("/parts/:id", s.updatePart)
	dash.Post("/parts/:id/delete", s.deletePart)

	app.Use(s.notFound)
	return app
}

// session attaches an API client restored from the request's cookies.
func (s *Storefront) session(c *fiber.Ctx) error {
	api := client.New(s.cfg.APIBaseURL,
		client.WithStore(NewCookieStore(c, s.cfg.SessionCookie, s.cfg.CookieSecure, sessionTTL)),
		client.WithTimeout(s.cfg.APITimeout),
	)
	if err := api.Restore(); err != nil {
		s.log.Warn("discarding unreadable session", zap.Error(err))
	}
	c.Locals(localClient, api)
	return c.Next()
}

func apiClient(c *fiber.Ctx) *client.Client {
	return c.Locals(localClient).(*client.Client)
}

func (s *Storefront) requireSession(c *fiber.Ctx) error {
	if !apiClient(c).Authenticated() {
		return c.Redirect("/login")
	}
	return c.Next()
}

// render executes page with the fields every page shares.
func render(c *fiber.Ctx, status int, page, title string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["Title"] = title
	data["User"] = apiClient(c).Session().User
	data["Path"] = c.Path()
	return c.Status(status).Render("pages/"+page, data, layout)
}

// listParts fetches parts for display. Failures are logged and shown as an
// empty listing.
func (s *Storefront) listParts(c *fiber.Ctx, filter models.PartFilter) []models.Part {
	parts, err := apiClient(c).ListParts(filter)
	if err != nil {
		s.log.Error("error fetching parts", zap.Error(err))
		return []models.Part{}
	}
	return parts
}

func (s *Storefront) home(c *fiber.Ctx) error {
	parts := s.listParts(c, models.PartFilter{})
	return render(c, fiber.StatusOK, "home", "Home", fiber.Map{
		"Featured":   inventory.Featured(parts),
		"Categories": inventory.DistinctCategories(parts),
		"Total":      len(parts),
	})
}

func (s *Storefront) catalog(c *fiber.Ctx) error {
	filter := models.PartFilter{Category: c.Query("category"), Search: c.Query("search")}
	parts := s.listParts(c, filter)
	return render(c, fiber.StatusOK, "catalog", "Auto Parts Catalog", fiber.Map{
		"Parts":      parts,
		"Groups":     inventory.GroupByCategory(parts),
		"Categories": inventory.Categories,
		"Filter":     filter,
	})
}

func (s *Storefront) detail(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return s.notFound(c)
	}
	api := apiClient(c)
	part, err := api.GetPart(id)
	if err != nil {
		if !client.IsStatus(err, http.StatusNotFound) {
			s.log.Error("error fetching part", zap.Uint("part_id", id), zap.Error(err))
		}
		return s.notFound(c)
	}
	related := inventory.Related(*part, s.listParts(c, models.PartFilter{Category: part.Category}), relatedCount)
	return render(c, fiber.StatusOK, "detail", part.Name, fiber.Map{
		"Part":    part,
		"Related": related,
	})
}

func (s *Storefront) loginForm(c *fiber.Ctx) error {
	if apiClient(c).Authenticated() {
		return c.Redirect("/dashboard")
	}
	return render(c, fiber.StatusOK, "login", "Sign In", nil)
}

func (s *Storefront) login(c *fiber.Ctx) error {
	email := c.FormValue("email")
	if _, err := apiClient(c).Login(email, c.FormValue("password")); err != nil {
		status, msg := s.failure(err, "Login failed")
		return render(c, status, "login", "Sign In", fiber.Map{"Error": msg, "Email": email})
	}
	return c.Redirect("/dashboard")
}

func (s *Storefront) registerForm(c *fiber.Ctx) error {
	if apiClient(c).Authenticated() {
		return c.Redirect("/dashboard")
	}
	return render(c, fiber.StatusOK, "register", "Create Account", nil)
}

func (s *Storefront) register(c *fiber.Ctx) error {
	name, email := c.FormValue("name"), c.FormValue("email")
	if c.FormValue("password") != c.FormValue("confirm_password") {
		return render(c, fiber.StatusBadRequest, "register", "Create Account", fiber.Map{
			"Error": "Passwords do not match", "Name": name, "Email": email,
		})
	}
	if _, err := apiClient(c).Register(name, email, c.FormValue("password")); err != nil {
		status, msg := s.failure(err, "Registration failed")
		return render(c, status, "register", "Create Account", fiber.Map{"Error": msg, "Name": name, "Email": email})
	}
	return c.Redirect("/dashboard")
}

func (s *Storefront) logout(c *fiber.Ctx) error {
	if err := apiClient(c).Logout(); err != nil {
		s.log.Warn("failed to clear session", zap.Error(err))
	}
	return c.Redirect("/")
}

func (s *Storefront) dashboard(c *fiber.Ctx) error {
	return s.renderDashboard(c, fiber.StatusOK, newPartForm(nil), "")
}

func (s *Storefront) renderDashboard(c *fiber.Ctx, status int, form partForm, errMsg string) error {
	parts := s.listParts(c, models.PartFilter{})
	return render(c, status, "dashboard", "Dashboard", fiber.Map{
		"Parts": parts,
		"Stats": inventory.Summarize(parts),
		"Form":  form,
		"Error": errMsg,
	})
}

func (s *Storefront) createPart(c *fiber.Ctx) error {
	in, image, err := readPartForm(c)
	if err != nil {
		return s.renderDashboard(c, fiber.StatusBadRequest, formFromInput(in, "/dashboard/parts", "Add Part"), err.Error())
	}
	api := apiClient(c)
	if _, err := api.CreatePart(in, image); err != nil {
		if !api.Authenticated() {
			return c.Redirect("/login")
		}
		status, msg := s.failure(err, "Failed to save part")
		return s.renderDashboard(c, status, formFromInput(in, "/dashboard/parts", "Add Part"), msg)
	}
	return c.Redirect("/dashboard")
}

func (s *Storefront) editForm(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return s.notFound(c)
	}
	part, err := apiClient(c).GetPart(id)
	if err != nil {
		if !client.IsStatus(err, http.StatusNotFound) {
			s.log.Error("error fetching part", zap.Uint("part_id", id), zap.Error(err))
		}
		return s.notFound(c)
	}
	return render(c, fiber.StatusOK, "edit", "Edit "+part.Name, fiber.Map{
		"Part": part,
		"Form": newPartForm(part),
	})
}

func (s *Storefront) updatePart(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return s.notFound(c)
	}
	action := "/dashboard/parts/" + strconv.FormatUint(uint64(id), 10)
	in, image, err := readPartForm(c)
	if err != nil {
		return render(c, fiber.StatusBadRequest, "edit", "Edit Part", fiber.Map{
			"Form": formFromInput(in, action, "Update Part"), "Error": err.Error(),
		})
	}
	api := apiClient(c)
	if _, err := api.UpdatePart(id, in, image); err != nil {
		if !api.Authenticated() {
			return c.Redirect("/login")
		}
		if client.IsStatus(err, http.StatusNotFound) {
			return s.notFound(c)
		}
		status, msg := s.failure(err, "Failed to save part")
		return render(c, status, "edit", "Edit Part", fiber.Map{
			"Form": formFromInput(in, action, "Update Part"), "Error": msg,
		})
	}
	return c.Redirect("/dashboard")
}

func (s *Storefront) deletePart(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return s.notFound(c)
	}
	api := apiClient(c)
	if err := api.DeletePart(id); err != nil {
		if !api.Authenticated() {
			return c.Redirect("/login")
		}
		status, msg := s.failure(err, "Failed to delete part")
		return s.renderDashboard(c, status, newPartForm(nil), msg)
	}
	return c.Redirect("/dashboard")
}

func (s *Storefront) notFound(c *fiber.Ctx) error {
	return render(c, fiber.StatusNotFound, "notfound", "Not Found", nil)
}

// errorPage renders errors no handler dealt with.
func (s *Storefront) errorPage(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	} else {
		s.log.Error("request failed",
			zap.String("path", c.Path()),
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.Error(err),
		)
	}
	if status == fiber.StatusNotFound {
		return s.notFound(c)
	}
	c.Status(status)
	if c.Locals(localClient) == nil {
		return c.SendString(http.StatusText(status))
	}
	return render(c, status, "error", "Error", fiber.Map{"Status": status})
}

// failure turns an API call error into the status and message shown to the
// user. Messages from the API are shown as they are.
func (s *Storefront) failure(err error, fallback string) (int, string) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Message
	}
	s.log.Error(fallback, zap.Error(err))
	return fiber.StatusBadGateway, fallback
}

func pathID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}
