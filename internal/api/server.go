package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/KongzTech/moonzip-backend/infrastructure/metrics"
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// ListenConfig is one listener address.
type ListenConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (c ListenConfig) bind(defaultPort int) string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// Config configures the API server.
type Config struct {
	Listen      ListenConfig `yaml:"listen"`
	AdminListen ListenConfig `yaml:"admin_listen"`
	Auth        AuthConfig   `yaml:"auth"`
	// ExposeDev adds the auth echo route used by integration clients.
	ExposeDev bool `yaml:"expose_dev"`
}

// Server hosts the public and admin listeners.
type Server struct {
	app    *App
	auth   *AuthProvider
	config Config
	log    *logrus.Entry
}

// NewServer creates the server.
func NewServer(app *App, config Config, log *logrus.Entry) *Server {
	return &Server{
		app:    app,
		auth:   NewAuthProvider(config.Auth),
		config: config,
		log:    log.WithField("component", "api-server"),
	}
}

// Router builds the public gin engine.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	api := engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/auth", s.handleAuth)
	api.GET("/project", s.handleGetProject)

	authed := api.Group("", s.auth.Middleware())
	authed.POST("/project/create", s.handleCreateProject)
	authed.POST("/project/buy", s.handleBuy)
	authed.POST("/project/sell", s.handleSell)
	if s.config.ExposeDev {
		authed.POST("/auth_test", s.handleAuthTest)
	}

	engine.GET("/health", s.handleHealth)
	return engine
}

// AdminRouter builds the admin engine: health plus metrics.
func (s *Server) AdminRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/health", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	return engine
}

// Serve runs both listeners until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	public := &http.Server{
		Addr:    s.config.Listen.bind(8000),
		Handler: s.Router(),
	}
	admin := &http.Server{
		Addr:    s.config.AdminListen.bind(18000),
		Handler: s.AdminRouter(),
	}

	failures := make(chan error, 2)
	go func() {
		s.log.WithField("addr", public.Addr).Info("listening api")
		failures <- public.ListenAndServe()
	}()
	go func() {
		s.log.WithField("addr", admin.Addr).Info("listening admin")
		failures <- admin.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = public.Shutdown(shutdownCtx)
		_ = admin.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-failures:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type healthResponse struct {
	Status bool `json:"status"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: true})
}

func (s *Server) handleAuth(c *gin.Context) {
	var request AuthRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondMalformedJSON(c, err)
		return
	}
	user, err := solana.ParsePubkey(request.User)
	if err != nil {
		respondInvalidRequest(c, "malformed user key")
		return
	}
	propose, err := s.auth.IssueToken(user, time.Now())
	if err != nil {
		respondInternal(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, propose)
}

type authTestRequest struct {
	Raw string `json:"raw"`
}

type authTestResponse struct {
	User    string          `json:"user"`
	Request authTestRequest `json:"request"`
}

func (s *Server) handleAuthTest(c *gin.Context) {
	user, _ := AuthUser(c)
	var request authTestRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondMalformedJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, authTestResponse{User: user.String(), Request: request})
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var request CreateProjectRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondMalformedJSON(c, err)
		return
	}
	response, err := s.app.CreateProject(c.Request.Context(), request)
	if err != nil {
		respondInternal(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleBuy(c *gin.Context) {
	var request BuyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondMalformedJSON(c, err)
		return
	}
	response, err := s.app.Buy(c.Request.Context(), request)
	if err != nil {
		respondInvalidRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleSell(c *gin.Context) {
	var request SellRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondMalformedJSON(c, err)
		return
	}
	response, err := s.app.Sell(c.Request.Context(), request)
	if err != nil {
		respondInvalidRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, response)
}

type getProjectResponse struct {
	Project *PublicProject `json:"project"`
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, err := uuid.Parse(c.Query("project_id"))
	if err != nil {
		respondInvalidRequest(c, "malformed project_id")
		return
	}
	project, err := s.app.GetProject(c.Request.Context(), id)
	if err != nil {
		respondInternal(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, getProjectResponse{Project: project})
}
