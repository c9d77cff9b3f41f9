/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/theirish81/ollamakit"
	"github.com/theirish81/ollamakit/schema"
)

type chatRequest struct {
	Conversation string         `json:"conversation"`
	Prompt       string         `json:"prompt" validate:"required"`
	Tool         string         `json:"tool"`
	SystemPrompt string         `json:"system_prompt"`
	Format       *schema.Schema `json:"format"`
}

type completeRequest struct {
	Prompt       string         `json:"prompt" validate:"required"`
	SystemPrompt string         `json:"system_prompt"`
	Format       *schema.Schema `json:"format"`
}

type embedRequest struct {
	Input []string `json:"input" validate:"required,min=1,dive,required"`
}

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Runs a web server exposing the client over HTTP",
	Long: `
Runs a web server exposing the client over HTTP. POST /chat streams the reply as server-sent events and keeps one
conversation per id. GET /models, POST /complete and POST /embed mirror the corresponding commands.
***WARNING***: the server has no authentication. Use it only in development or safe environments.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client, err := initClient(cmd)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		e := newWebServer(client, newLogger())
		if err := e.Start(fmt.Sprintf(":%d", port)); err != nil {
			cmd.PrintErrln(err)
		}
	},
}

func init() {
	webCmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	webCmd.Flags().StringVarP(&toolsFile, "tools-file", "", "", "tools file, defaults to "+defaultToolsFile)
}

// webServer serves the HTTP endpoints. Every conversation is a client sharing the base client configuration.
type webServer struct {
	client        *ollamakit.Client
	conversations *ollamakit.SafeMap[string, *ollamakit.Client]
}

func newWebServer(client *ollamakit.Client, log *slog.Logger) *echo.Echo {
	s := &webServer{
		client:        client,
		conversations: ollamakit.NewSafeMap[string, *ollamakit.Client](),
	}
	e := echo.New()
	addRequestLoggerMiddleware(e, log)
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler
	e.Validator = &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
	e.POST("/chat", s.chat)
	e.GET("/chat/:conversation", s.history)
	e.DELETE("/chat/:conversation", s.reset)
	e.GET("/models", s.models)
	e.POST("/complete", s.complete)
	e.POST("/embed", s.embed)
	return e
}

// conversation returns the client of the conversation, creating it on first use.
func (s *webServer) conversation(id string) *ollamakit.Client {
	if client, ok := s.conversations.Load(id); ok {
		return client
	}
	s.conversations.StoreIfAbsent(id, s.client.New())
	client, _ := s.conversations.Load(id)
	return client
}

func (s *webServer) chat(c echo.Context) error {
	req := chatRequest{}
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Conversation == "" {
		req.Conversation = uuid.NewString()
	}
	options := requestOptions(req.SystemPrompt, req.Format)
	if req.Tool != "" {
		options = append(options, ollamakit.WithToolName(req.Tool))
	}
	client := s.conversation(req.Conversation)
	return NewStreamer(c).Stream(req.Conversation, client.ChatChan(c.Request().Context(), req.Prompt, options...))
}

func (s *webServer) history(c echo.Context) error {
	client, ok := s.conversations.Load(c.Param("conversation"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	return c.JSON(http.StatusOK, client.History().Snapshot())
}

func (s *webServer) reset(c echo.Context) error {
	if !s.conversations.Delete(c.Param("conversation")) {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *webServer) models(c echo.Context) error {
	var (
		models ollamakit.ModelList
		err    error
	)
	ctx := c.Request().Context()
	if c.QueryParam("remote") == "true" {
		models, err = s.client.ListRemoteModels(ctx)
	} else {
		models, err = s.client.ListLocalModels(ctx)
	}
	if err != nil {
		return err
	}
	sort := c.QueryParam("sort")
	if sort == "" {
		sort = sortByName
	}
	models, err = selectModels(models, c.QueryParam("filter"), c.QueryParam("where"), sort)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, models)
}

func (s *webServer) complete(c echo.Context) error {
	req := completeRequest{}
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	response, err := s.client.Complete(c.Request().Context(), req.Prompt, requestOptions(req.SystemPrompt, req.Format)...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"response": response})
}

func (s *webServer) embed(c echo.Context) error {
	req := embedRequest{}
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	embeddings, err := s.client.Embed(c.Request().Context(), req.Input...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"embeddings": embeddings})
}

func requestOptions(systemPrompt string, format *schema.Schema) []ollamakit.CallOption {
	var options []ollamakit.CallOption
	if systemPrompt != "" {
		options = append(options, ollamakit.WithSystemPrompt(systemPrompt))
	}
	if format != nil {
		options = append(options, ollamakit.WithFormat(format))
	}
	return options
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// statusOf maps client errors to HTTP statuses.
func statusOf(err *ollamakit.Error) int {
	switch err.Kind {
	case ollamakit.TransportError:
		if err.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case ollamakit.ProtocolError:
		return http.StatusBadGateway
	case ollamakit.ToolInvocationError, ollamakit.ArgumentBindingError:
		return http.StatusUnprocessableEntity
	case ollamakit.Cancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

var errorHandler = func(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := err.Error()
	var httpErr *echo.HTTPError
	var clientErr *ollamakit.Error
	switch {
	case errors.As(err, &httpErr):
		status = httpErr.Code
		message = fmt.Sprint(httpErr.Message)
	case errors.As(err, &clientErr):
		status = statusOf(clientErr)
	}
	_ = c.JSON(status, echo.Map{"error": message})
}

// addRequestLoggerMiddleware adds a middleware that logs each request.
func addRequestLoggerMiddleware(e *echo.Echo, log *slog.Logger) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		HandleError: true, // forwards error to the global error handler, so it can decide appropriate status code
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				log.LogAttrs(context.Background(), slog.LevelInfo, "REQUEST",
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
				)
			} else {
				log.LogAttrs(context.Background(), slog.LevelError, "REQUEST_ERROR",
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.String("err", v.Error.Error()),
				)
			}
			return nil
		},
	}))
}
