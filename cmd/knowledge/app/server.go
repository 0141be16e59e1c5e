// Package app provides the knowledge server application.
package app

import (
	"context"
	"fmt"

	"github.com/tradementor/tradementor/cmd/knowledge/app/options"
	"github.com/tradementor/tradementor/pkg/app"
)

const (
	// Name is the name of the application.
	Name = "tradementor-knowledge"

	commandDesc = `TradeMentor Knowledge Service

The retrieval-augmented knowledge base behind the trading tutor.

This server provides:
  - Semantic search over the ingested education library
  - Structured question answering with an LLM
  - Token-level answer streaming over SSE
  - Trade synchronisation and agent-based trade analysis`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("TradeMentor knowledge service"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		if err := opts.LogOptions.Init(); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		server, err := opts.Config().NewServer(context.Background())
		if err != nil {
			return fmt.Errorf("create server: %w", err)
		}
		return server.Run()
	}
}
