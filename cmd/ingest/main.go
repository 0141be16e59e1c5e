// Package main is the entry point for the TradeMentor ingestion CLI.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	_ "github.com/tradementor/tradementor/pkg/llm/ollama"
	_ "github.com/tradementor/tradementor/pkg/llm/openai"

	"github.com/tradementor/tradementor/cmd/ingest/app"
)

func main() {
	app.NewApp().Run()
}
