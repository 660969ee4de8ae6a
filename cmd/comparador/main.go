package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/comparador/backend/cmd/comparador/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	commands.ExecuteContext(ctx)
}
