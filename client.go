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

package ollamakit

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/theirish81/ollamakit/log"
)

const (
	opChat         = "chat"
	opGenerate     = "generate"
	opEmbed        = "embed"
	opListModels   = "list models"
	opRemoteModels = "list remote models"
	opPull         = "pull"
)

func componentOf(op string) log.EventComponent {
	switch op {
	case opChat:
		return log.SessionComponent
	case opListModels, opRemoteModels:
		return log.ModelsComponent
	case opPull:
		return log.PullComponent
	default:
		return log.ClientComponent
	}
}

// Client talks to one Ollama server. A client holds one conversation: its history is shared by every Chat call.
// Use New to start another conversation with the same configuration.
type Client struct {
	config  Config
	http    *http.Client
	history History
	tools   *ToolRegistry
	log     *log.StreamerLogger
}

// ClientOptions are the options of NewClient.
type ClientOptions struct {
	logger       *slog.Logger
	channel      chan log.Event
	channelLevel log.ChannelLevel
	httpClient   *http.Client
	history      History
	tools        []Tool
}

// ClientOption is an option for the client.
type ClientOption func(*ClientOptions)

// WithLogger sets the slog logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *ClientOptions) {
		o.logger = logger
	}
}

// WithEventChannel mirrors the log events on a channel. Events are dropped when the channel is full.
func WithEventChannel(channel chan log.Event, level log.ChannelLevel) ClientOption {
	return func(o *ClientOptions) {
		o.channel = channel
		o.channelLevel = level
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *ClientOptions) {
		o.httpClient = client
	}
}

// WithHistory replaces the conversation log. When set, it is used even if KeepHistory is off.
func WithHistory(history History) ClientOption {
	return func(o *ClientOptions) {
		o.history = history
	}
}

// WithTools registers tools that chat turns can activate with WithToolName.
func WithTools(tools ...Tool) ClientOption {
	return func(o *ClientOptions) {
		o.tools = append(o.tools, tools...)
	}
}

// NewClient creates a new client
func NewClient(config Config, options ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	opts := ClientOptions{channelLevel: log.InfoChannelLevel}
	for _, opt := range options {
		opt(&opts)
	}
	c := &Client{
		config: config,
		tools:  NewToolRegistry(),
		log:    log.NewStreamerLogger(opts.logger, opts.channel, opts.channelLevel),
	}
	if opts.httpClient != nil {
		c.http = withAPIKey(opts.httpClient, config.APIKey)
	} else {
		c.http = newHTTPClient(config)
	}
	switch {
	case opts.history != nil:
		c.history = opts.history
	case config.KeepHistory:
		c.history = NewMemoryHistory()
	default:
		c.history = NopHistory{}
	}
	var errs []error
	for _, tool := range opts.tools {
		errs = append(errs, c.tools.Register(tool))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// New returns a client sharing configuration, transport, tools and logger, with a fresh conversation.
func (c *Client) New() *Client {
	var history History = NopHistory{}
	if c.config.KeepHistory {
		history = NewMemoryHistory()
	}
	return &Client{
		config:  c.config,
		http:    c.http,
		history: history,
		tools:   c.tools,
		log:     c.log,
	}
}

func (c *Client) Config() Config {
	return c.config
}

func (c *Client) History() History {
	return c.history
}

func (c *Client) Tools() *ToolRegistry {
	return c.tools
}
