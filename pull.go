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
	"io"

	"github.com/theirish81/ollamakit/log"
)

const pullSuccess = "success"

// PullObserver receives the pull progress in arrival order.
type PullObserver interface {
	OnPullProgress(progress PullProgress)
}

// PullObserverFunc adapts a function to PullObserver.
type PullObserverFunc func(progress PullProgress)

func (f PullObserverFunc) OnPullProgress(progress PullProgress) {
	f(progress)
}

// Pull downloads a model. The observer may be nil.
func (c *Client) Pull(ctx context.Context, name string, observer PullObserver) error {
	c.log.Info(log.NewEvent(log.StartEventType, log.PullComponent).WithModel(name).WithMessage("pulling model"))
	stream, err := openStream[PullProgress](ctx, c, opPull, "/api/pull", PullRequest{Model: name, Stream: true})
	if err != nil {
		return err
	}
	defer func() {
		_ = stream.Close()
	}()
	for {
		progress, err := stream.Recv()
		if err == io.EOF {
			return newError(ProtocolError, opPull, nil, "pull of %s ended without success", name)
		}
		if err != nil {
			return err
		}
		if progress.Error != "" {
			return newError(ProtocolError, opPull, nil, "pull of %s failed: %s", name, progress.Error)
		}
		c.log.Debug(log.NewEvent(log.ProgressEventType, log.PullComponent).WithModel(name).
			WithMessage(progress.Status).WithArg("percent", progress.Percent()))
		if observer != nil {
			observer.OnPullProgress(progress)
		}
		if progress.Status == pullSuccess {
			c.log.Info(log.NewEvent(log.EndEventType, log.PullComponent).WithModel(name).WithMessage("model pulled"))
			return nil
		}
	}
}

// EnsureModel pulls the model unless it is already installed.
func (c *Client) EnsureModel(ctx context.Context, name string, observer PullObserver) error {
	models, err := c.ListLocalModels(ctx)
	if err != nil {
		return err
	}
	if models.Contains(name) {
		c.log.Debug(log.NewEvent(log.GenericEventType, log.PullComponent).WithModel(name).
			WithMessage("model already installed"))
		return nil
	}
	return c.Pull(ctx, name, observer)
}
