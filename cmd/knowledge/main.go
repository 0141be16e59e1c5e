// Package main is the entry point for the TradeMentor knowledge service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	_ "github.com/tradementor/tradementor/pkg/llm/ollama"
	_ "github.com/tradementor/tradementor/pkg/llm/openai"

	"github.com/tradementor/tradementor/cmd/knowledge/app"
)

func main() {
	app.NewApp().Run()
}
