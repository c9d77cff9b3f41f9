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
	"context"
	"errors"
	"net/http"

	"github.com/theirish81/ollamakit/log"
)

// Complete runs a one-shot, stateless completion. The history is neither sent nor updated. Token handlers and
// tools are ignored.
func (c *Client) Complete(ctx context.Context, prompt string, options ...CallOption) (string, error) {
	opts := newCallOptions(options)
	request := GenerateRequest{
		Model:   c.config.Model,
		Prompt:  prompt,
		System:  c.systemPrompt(opts),
		Format:  opts.format,
		Stream:  false,
		Options: c.options(),
	}
	response := GenerateResponse{}
	if err := c.doJSON(ctx, opGenerate, http.MethodPost, joinURL(c.config.Host, "/api/generate"), request,
		&response); err != nil {
		c.log.Err(log.NewEvent(log.ErrorEventType, log.ClientComponent).WithModel(c.config.Model).
			WithMessage("completion failed").WithErr(err))
		return "", err
	}
	return response.Response, nil
}

// Embed computes one embedding per input, with EmbeddingModel when configured.
func (c *Client) Embed(ctx context.Context, inputs ...string) ([][]float64, error) {
	if len(inputs) == 0 {
		return nil, errors.New("at least one input is required")
	}
	request := EmbedRequest{Model: c.config.embeddingModel(), Input: inputs}
	response := EmbedResponse{}
	if err := c.doJSON(ctx, opEmbed, http.MethodPost, joinURL(c.config.Host, "/api/embed"), request,
		&response); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(inputs) {
		return nil, newError(ProtocolError, opEmbed, nil, "expected %d embeddings, got %d", len(inputs),
			len(response.Embeddings))
	}
	return response.Embeddings, nil
}
